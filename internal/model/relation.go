package model

import (
	"time"
)

// SingleGroupID marks a relation whose source item was archived on its own,
// outside of any media group. Kept as a string sentinel for compatibility
// with the legacy schema, where grouped_id is a TEXT column.
const SingleGroupID = "0"

// MessageRelation is one archived copy of one source item. Rows are never
// deleted; the table is a permanent cache of everything the service has
// ever archived.
type MessageRelation struct {
	SourceChatID    string `gorm:"primaryKey;type:text"  json:"source_chat_id"`  // Chat the item was relayed from (slug or internal id).
	SourceMessageID int64  `gorm:"primaryKey"            json:"source_message_id"` // Message id in the source chat.
	TargetChatID    string `gorm:"primaryKey;type:text"  json:"target_chat_id"`  // The archive chat.
	GroupedID       string `gorm:"primaryKey;type:text"  json:"grouped_id"`      // Album id, or SingleGroupID.
	TargetMessageID int64  `gorm:"not null;index"        json:"target_message_id"` // Message id of the archived copy.

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"` // Time of the (latest) archival.
}

// TableName - set the table name.
func (MessageRelation) TableName() string {
	return "message_relations"
}

// Single reports whether the relation was archived outside a media group.
func (r *MessageRelation) Single() bool {
	return r.GroupedID == SingleGroupID
}
