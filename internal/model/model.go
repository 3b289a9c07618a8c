// Package model holds the persisted schema of the relay service: the four
// tables shared with the legacy deployment (message_relations,
// user_forward_quota, orders, invite_relations) plus the typed identifiers
// used across the service.
package model

import "strconv"

type (
	// UserID is a Telegram user identifier.
	UserID int64

	// MessageID is a Telegram message identifier within one chat.
	MessageID int64
)

// ToInt64 - get the user ID.
func (id UserID) ToInt64() int64 {
	return int64(id)
}

// ToString - get the user ID as the storage key form.
func (id UserID) ToString() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseUserID parses the storage key form back into a UserID.
func ParseUserID(s string) (UserID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return UserID(id), nil
}

// ToInt64 - get the message ID.
func (id MessageID) ToInt64() int64 {
	return int64(id)
}

// ToString - get the message ID.
func (id MessageID) ToString() string {
	return strconv.FormatInt(int64(id), 10)
}
