package storage

import (
	"context"
	"errors"

	"github.com/vaultgram/vaultgram-server/internal/model"
	"gorm.io/gorm"
)

// quotaForUserTx loads the row, creating it with the full daily allowance on
// first contact and applying the lazy daily reset when the stored date is
// older than today. Must run inside a transaction.
func (s *Storage) quotaForUserTx(tx *gorm.DB, userID model.UserID, today string) (*model.UserQuota, error) {
	var quota model.UserQuota
	err := tx.Where("user_id = ?", userID.ToString()).First(&quota).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		quota = model.UserQuota{
			UserID:        userID.ToString(),
			FreeQuota:     s.dailyFree,
			PaidQuota:     0,
			LastResetDate: today,
		}
		if err := tx.Create(&quota).Error; err != nil {
			return nil, err
		}
		return &quota, nil
	case err != nil:
		return nil, err
	}

	if quota.LastResetDate < today {
		quota.FreeQuota = s.dailyFree
		quota.LastResetDate = today
		if err := tx.Model(&model.UserQuota{}).
			Where("user_id = ?", quota.UserID).
			Updates(map[string]any{
				"free_quota":      quota.FreeQuota,
				"last_reset_date": quota.LastResetDate,
			}).Error; err != nil {
			return nil, err
		}
	}

	return &quota, nil
}

// QuotaForUser returns the user's current balances, materializing the row and
// applying the daily reset as needed.
func (s *Storage) QuotaForUser(ctx context.Context, userID model.UserID, today string) (*model.UserQuota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var quota *model.UserQuota
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quota, err = s.quotaForUserTx(tx, userID, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quota, nil
}

// ConsumeQuota debits one relay, free balance first, then paid. Returns the
// post-debit balances and false when both balances were already drained;
// balances never go negative.
func (s *Storage) ConsumeQuota(ctx context.Context, userID model.UserID, today string) (*model.UserQuota, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		quota    *model.UserQuota
		consumed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quota, err = s.quotaForUserTx(tx, userID, today)
		if err != nil {
			return err
		}

		switch {
		case quota.FreeQuota > 0:
			quota.FreeQuota--
		case quota.PaidQuota > 0:
			quota.PaidQuota--
		default:
			consumed = false
			return nil
		}
		consumed = true

		return tx.Model(&model.UserQuota{}).
			Where("user_id = ?", quota.UserID).
			Updates(map[string]any{
				"free_quota": quota.FreeQuota,
				"paid_quota": quota.PaidQuota,
			}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return quota, consumed, nil
}

// creditQuotaTx adds to the paid balance inside an existing transaction,
// shared by order completion and invite redemption.
func (s *Storage) creditQuotaTx(tx *gorm.DB, userID model.UserID, amount int, today string) (*model.UserQuota, error) {
	quota, err := s.quotaForUserTx(tx, userID, today)
	if err != nil {
		return nil, err
	}

	quota.PaidQuota += amount
	if err := tx.Model(&model.UserQuota{}).
		Where("user_id = ?", quota.UserID).
		Update("paid_quota", quota.PaidQuota).Error; err != nil {
		return nil, err
	}
	return quota, nil
}

// CreditQuota adds purchased or rewarded relays to the paid balance.
func (s *Storage) CreditQuota(ctx context.Context, userID model.UserID, amount int, today string) (*model.UserQuota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var quota *model.UserQuota
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quota, err = s.creditQuotaTx(tx, userID, amount, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quota, nil
}

// ResetStaleQuotas renews the free balance of every row whose reset date is
// older than today. The midnight sweep; individual reads still reset lazily,
// so a missed sweep is harmless.
func (s *Storage) ResetStaleQuotas(ctx context.Context, today string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).
		Model(&model.UserQuota{}).
		Where("last_reset_date < ?", today).
		Updates(map[string]any{
			"free_quota":      s.dailyFree,
			"last_reset_date": today,
		})
	return result.RowsAffected, result.Error
}

// HasQuotaRow reports whether the user ever touched the service. Used by the
// invite redemption check for new users.
func (s *Storage) HasQuotaRow(ctx context.Context, userID model.UserID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.UserQuota{}).
		Where("user_id = ?", userID.ToString()).
		Count(&count).Error
	return count > 0, err
}
