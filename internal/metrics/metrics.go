package metrics

import (
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Metrics defines the contract for recording service events
type Metrics interface {
	LogEvent(eventName string, tags map[string]string, fields map[string]interface{})
	LogUserEvent(eventName string, userID int64, fields map[string]interface{})
	Close()
}

type metricsImpl struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPI
	org         string
	bucket      string
	defaultTags map[string]string // Constant tags, like service name
}

var _ Metrics = (*metricsImpl)(nil)

// NewMetricsImpl initializes the InfluxDB sink with constant tags
func NewMetricsImpl(url string, token string, org string, bucket string, defaultTags map[string]string) Metrics {
	client := influxdb2.NewClient(url, token)
	writeAPI := client.WriteAPI(org, bucket)
	return &metricsImpl{
		client:      client,
		writeAPI:    writeAPI,
		org:         org,
		bucket:      bucket,
		defaultTags: defaultTags,
	}
}

// Universal method to record an event with customizable tags and fields
func (m *metricsImpl) LogEvent(eventName string, tags map[string]string, fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}

	point := influxdb2.NewPointWithMeasurement("relay_event").
		AddTag("event", eventName).
		SetTime(time.Now())

	for key, value := range m.defaultTags {
		point.AddTag(key, value)
	}
	for key, value := range tags {
		point.AddTag(key, value)
	}
	for key, value := range fields {
		point.AddField(key, value)
	}

	m.writeAPI.WritePoint(point)
}

// Specific method for recording user-scoped events
func (m *metricsImpl) LogUserEvent(eventName string, userID int64, fields map[string]interface{}) {
	if userID == 0 {
		return
	}

	tags := map[string]string{
		"user_id": strconv.FormatInt(userID, 10),
	}

	m.LogEvent(eventName, tags, fields)
}

// Close flushes the write API and closes the client
func (m *metricsImpl) Close() {
	m.writeAPI.Flush()
	m.client.Close()
}
