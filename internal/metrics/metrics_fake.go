package metrics

// metricsFake is a no-op implementation of Metrics
type metricsFake struct{}

var _ Metrics = (*metricsFake)(nil)

// NewMetricsFake creates a no-op sink, used when no InfluxDB URL is configured
func NewMetricsFake() Metrics {
	return &metricsFake{}
}

// LogEvent is a no-op
func (metrics *metricsFake) LogEvent(_ string, _ map[string]string, _ map[string]interface{}) {
}

// LogUserEvent is a no-op
func (metrics *metricsFake) LogUserEvent(_ string, _ int64, _ map[string]interface{}) {
}

// Close is a no-op
func (metrics *metricsFake) Close() {
}
