package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vaultgram/vaultgram-server/internal/model"
	"gorm.io/gorm"
)

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// InviteCodeForUser returns the user's permanent invite code, minting the
// placeholder row on first request.
func (s *Storage) InviteCodeForUser(ctx context.Context, userID model.UserID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var relation model.InviteRelation
		err := tx.Where("inviter_id = ?", userID.ToString()).
			Order("id ASC").
			First(&relation).Error
		if err == nil {
			code = relation.InviteCode
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		code = newInviteCode()
		placeholder := model.InviteRelation{
			InviterID:  userID.ToString(),
			InviteeID:  nil,
			InviteCode: code,
		}
		return tx.Create(&placeholder).Error
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// RedeemInvite validates and records a referral: the code must exist, the
// invitee must be a fresh user distinct from the inviter, each invitee
// redeems at most once, and the inviter must be under the cap. On success a
// redemption row is inserted and the inviter's paid balance is credited, all
// in one transaction. Returns the inviter for notification.
func (s *Storage) RedeemInvite(ctx context.Context, code string, inviteeID model.UserID, today string) (model.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inviterID model.UserID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner model.InviteRelation
		err := tx.Where("invite_code = ?", code).
			Order("id ASC").
			First(&owner).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteInvalidCode
		}
		if err != nil {
			return err
		}

		inviterID, err = model.ParseUserID(owner.InviterID)
		if err != nil {
			return err
		}
		if inviterID == inviteeID {
			return ErrSelfInvite
		}

		var claimed int64
		if err := tx.Model(&model.InviteRelation{}).
			Where("invitee_id = ?", inviteeID.ToString()).
			Count(&claimed).Error; err != nil {
			return err
		}
		if claimed > 0 {
			return ErrAlreadyInvited
		}

		var quotaRows int64
		if err := tx.Model(&model.UserQuota{}).
			Where("user_id = ?", inviteeID.ToString()).
			Count(&quotaRows).Error; err != nil {
			return err
		}
		if quotaRows > 0 {
			return ErrInviteeActive
		}

		var redeemed int64
		if err := tx.Model(&model.InviteRelation{}).
			Where("inviter_id = ? AND invitee_id IS NOT NULL", owner.InviterID).
			Count(&redeemed).Error; err != nil {
			return err
		}
		if redeemed >= int64(s.inviteCap) {
			return ErrInviteCapReached
		}

		invitee := inviteeID.ToString()
		redemption := model.InviteRelation{
			InviterID:  owner.InviterID,
			InviteeID:  &invitee,
			InviteCode: owner.InviteCode,
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return err
		}

		_, err = s.creditQuotaTx(tx, inviterID, s.inviteReward, today)
		return err
	})
	if err != nil {
		return 0, err
	}
	return inviterID, nil
}

// InviteStats reports the inviter's redeemed referral count and the cap.
func (s *Storage) InviteStats(ctx context.Context, userID model.UserID) (redeemed int, cap int, err error) {
	var count int64
	err = s.db.WithContext(ctx).
		Model(&model.InviteRelation{}).
		Where("inviter_id = ? AND invitee_id IS NOT NULL", userID.ToString()).
		Count(&count).Error
	if err != nil {
		return 0, 0, err
	}
	return int(count), s.inviteCap, nil
}
