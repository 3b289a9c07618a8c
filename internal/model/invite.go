package model

import (
	"time"
)

// InviteRelation is one referral edge. A row with a nil InviteeID is the
// inviter's placeholder carrying their code; every successful redemption
// inserts a further row with the same code and the invitee filled in, so
// invitee uniqueness is the real constraint, not code uniqueness.
type InviteRelation struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	InviterID string  `gorm:"type:text;not null;index" json:"inviter_id"`
	InviteeID *string `gorm:"type:text;uniqueIndex"    json:"invitee_id"` // Nil until redeemed; at most one row per invitee.
	InviteCode string `gorm:"type:text;not null;index" json:"invite_code"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName - set the table name.
func (InviteRelation) TableName() string {
	return "invite_relations"
}

// Redeemed reports whether the row records a completed referral.
func (r *InviteRelation) Redeemed() bool {
	return r.InviteeID != nil
}
