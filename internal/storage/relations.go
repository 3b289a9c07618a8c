package storage

import (
	"context"
	"errors"

	"github.com/vaultgram/vaultgram-server/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FindSingleRelation looks up the archived copy of a standalone item.
// Returns nil without error when the item was never archived.
func (s *Storage) FindSingleRelation(ctx context.Context, sourceChat string, sourceMessage int64, targetChat string) (*model.MessageRelation, error) {
	var relation model.MessageRelation
	err := s.db.WithContext(ctx).
		Where("source_chat_id = ? AND source_message_id = ? AND target_chat_id = ? AND grouped_id = ?",
			sourceChat, sourceMessage, targetChat, model.SingleGroupID).
		First(&relation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &relation, nil
}

// FindGroupedRelation looks up any archived relation of the item regardless
// of grouping, preferring a grouped row. Used to discover the album id of a
// previously archived item.
func (s *Storage) FindGroupedRelation(ctx context.Context, sourceChat string, sourceMessage int64, targetChat string) (*model.MessageRelation, error) {
	var relation model.MessageRelation
	err := s.db.WithContext(ctx).
		Where("source_chat_id = ? AND source_message_id = ? AND target_chat_id = ?",
			sourceChat, sourceMessage, targetChat).
		Order("grouped_id DESC").
		First(&relation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &relation, nil
}

// FindGroupRelations returns every archived row of one media group, ordered
// by the source message id ascending so re-serving preserves album order.
func (s *Storage) FindGroupRelations(ctx context.Context, sourceChat, groupedID, targetChat string) ([]model.MessageRelation, error) {
	var relations []model.MessageRelation
	err := s.db.WithContext(ctx).
		Where("source_chat_id = ? AND grouped_id = ? AND target_chat_id = ?",
			sourceChat, groupedID, targetChat).
		Order("source_message_id ASC").
		Find(&relations).Error
	if err != nil {
		return nil, err
	}
	return relations, nil
}

// UpsertRelation records one archived copy. Re-archiving the same source item
// overwrites the target message id instead of failing on the key.
func (s *Storage) UpsertRelation(ctx context.Context, relation *model.MessageRelation) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "source_chat_id"},
				{Name: "source_message_id"},
				{Name: "target_chat_id"},
				{Name: "grouped_id"},
			},
			UpdateAll: true,
		}).
		Create(relation).Error
}

// UpsertGroupRelations records a whole archived media group in one
// transaction, pairing source ids with target ids positionally.
func (s *Storage) UpsertGroupRelations(ctx context.Context, sourceChat string, sourceIDs []int64, targetChat string, targetIDs []int64, groupedID string) error {
	n := len(sourceIDs)
	if len(targetIDs) < n {
		n = len(targetIDs)
	}
	if n == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < n; i++ {
			relation := model.MessageRelation{
				SourceChatID:    sourceChat,
				SourceMessageID: sourceIDs[i],
				TargetChatID:    targetChat,
				GroupedID:       groupedID,
				TargetMessageID: targetIDs[i],
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "source_chat_id"},
					{Name: "source_message_id"},
					{Name: "target_chat_id"},
					{Name: "grouped_id"},
				},
				UpdateAll: true,
			}).Create(&relation).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
