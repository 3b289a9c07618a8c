package model

import (
	"time"
)

// UserQuota is the per-user consumption allowance: a free balance renewed
// daily and a paid balance that only grows through purchases and referral
// rewards. Rows are created lazily on first use and never deleted.
type UserQuota struct {
	UserID        string `gorm:"primaryKey;type:text" json:"user_id"`
	FreeQuota     int    `gorm:"not null"             json:"free_quota"`      // Remaining free relays for today.
	PaidQuota     int    `gorm:"not null"             json:"paid_quota"`      // Remaining purchased relays.
	LastResetDate string `gorm:"type:text;index"      json:"last_reset_date"` // YYYY-MM-DD of the last free reset.

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

// TableName - set the table name.
func (UserQuota) TableName() string {
	return "user_forward_quota"
}

// Total - the combined remaining balance.
func (q *UserQuota) Total() int {
	return q.FreeQuota + q.PaidQuota
}

// Exhausted reports whether both balances are drained.
func (q *UserQuota) Exhausted() bool {
	return q.FreeQuota <= 0 && q.PaidQuota <= 0
}
