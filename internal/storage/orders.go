package storage

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vaultgram/vaultgram-server/internal/model"
	"gorm.io/gorm"
)

// uniqueAmount adds a random fractional offset of 0.00001..0.00099 to the
// base price, rounded to five decimals, so the transfer amount alone
// identifies the order in the external ledger.
func uniqueAmount(base float64) float64 {
	offset := float64(rand.IntN(99)+1) / 100000
	return math.Round((base+offset)*100000) / 100000
}

func newOrderID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// CreateOrder opens a pending order with a fresh id and a unique price.
func (s *Storage) CreateOrder(ctx context.Context, userID model.UserID, packageName string, basePrice float64, quotaAmount int, wallet string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := model.Order{
		OrderID:        newOrderID(),
		UserID:         userID.ToString(),
		PackageName:    packageName,
		Amount:         uniqueAmount(basePrice),
		QuotaAmount:    quotaAmount,
		Status:         model.OrderPending,
		PaymentAddress: wallet,
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// OrderByID fetches one order.
func (s *Storage) OrderByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// PendingOrders returns every open order, oldest first. The reconciler's
// work list.
func (s *Storage) PendingOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Where("status = ?", model.OrderPending).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UserPendingOrders returns the user's open orders, newest first.
func (s *Storage) UserPendingOrders(ctx context.Context, userID model.UserID) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID.ToString(), model.OrderPending).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// CompleteOrder moves a pending order to completed and credits the purchased
// quota in the same transaction. A terminal order returns ErrOrderNotPending
// and credits nothing, so a transfer can never be honored twice.
func (s *Storage) CompleteOrder(ctx context.Context, orderID, txHash, today string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("order_id = ?", orderID).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.Status != model.OrderPending {
			return ErrOrderNotPending
		}

		now := time.Now().UTC()
		order.Status = model.OrderCompleted
		order.CompletedAt = sql.NullTime{Time: now, Valid: true}
		if txHash != "" {
			order.TxHash = sql.NullString{String: txHash, Valid: true}
		}

		updates := map[string]any{
			"status":       order.Status,
			"completed_at": order.CompletedAt,
		}
		if order.TxHash.Valid {
			updates["tx_hash"] = order.TxHash
		}
		if err := tx.Model(&model.Order{}).
			Where("order_id = ?", orderID).
			Updates(updates).Error; err != nil {
			return err
		}

		userID, err := model.ParseUserID(order.UserID)
		if err != nil {
			return err
		}
		_, err = s.creditQuotaTx(tx, userID, order.QuotaAmount, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder moves a pending order to cancelled. Terminal orders are left
// untouched and reported via ErrOrderNotPending.
func (s *Storage) CancelOrder(ctx context.Context, orderID string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("order_id = ?", orderID).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.Status != model.OrderPending {
			return ErrOrderNotPending
		}

		order.Status = model.OrderCancelled
		return tx.Model(&model.Order{}).
			Where("order_id = ?", orderID).
			Update("status", order.Status).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TouchOrderChecked stamps the last reconciliation pass that saw the order.
func (s *Storage) TouchOrderChecked(ctx context.Context, orderID string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Update("last_checked", sql.NullTime{Time: at.UTC(), Valid: true}).Error
}

// SetOrderTxInfo records the matched transaction and its best-effort memo.
// Pending orders only: a terminal order's tx info is immutable.
func (s *Storage) SetOrderTxInfo(ctx context.Context, orderID, txHash, memo string) error {
	updates := map[string]any{
		"tx_hash": sql.NullString{String: txHash, Valid: txHash != ""},
	}
	if memo != "" {
		updates["memo"] = sql.NullString{String: memo, Valid: true}
	}
	return s.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ? AND status = ?", orderID, model.OrderPending).
		Updates(updates).Error
}
