package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultgram/vaultgram-server/internal/model"
)

func TestInviteCodeForUserStable(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	code, err := s.InviteCodeForUser(ctx, model.UserID(1))
	require.NoError(t, err)
	require.Len(t, code, 8)

	again, err := s.InviteCodeForUser(ctx, model.UserID(1))
	require.NoError(t, err)
	require.Equal(t, code, again)

	other, err := s.InviteCodeForUser(ctx, model.UserID(2))
	require.NoError(t, err)
	require.NotEqual(t, code, other)
}

func TestRedeemInviteHappyPath(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	today := "2026-08-28"

	code, err := s.InviteCodeForUser(ctx, model.UserID(1))
	require.NoError(t, err)

	inviter, err := s.RedeemInvite(ctx, code, model.UserID(2), today)
	require.NoError(t, err)
	require.Equal(t, model.UserID(1), inviter)

	quota, err := s.QuotaForUser(ctx, model.UserID(1), today)
	require.NoError(t, err)
	require.Equal(t, 5, quota.PaidQuota)

	redeemed, cap, err := s.InviteStats(ctx, model.UserID(1))
	require.NoError(t, err)
	require.Equal(t, 1, redeemed)
	require.Equal(t, 20, cap)
}

func TestRedeemInviteInvalidCode(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.RedeemInvite(context.Background(), "NOPE1234", model.UserID(2), "2026-08-28")
	require.ErrorIs(t, err, ErrInviteInvalidCode)
}

func TestRedeemInviteSelf(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	code, err := s.InviteCodeForUser(ctx, model.UserID(1))
	require.NoError(t, err)

	_, err = s.RedeemInvite(ctx, code, model.UserID(1), "2026-08-28")
	require.ErrorIs(t, err, ErrSelfInvite)
}

func TestRedeemInviteTwiceRejected(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	today := "2026-08-28"

	codeA, err := s.InviteCodeForUser(ctx, model.UserID(1))
	require.NoError(t, err)
	codeB, err := s.InviteCodeForUser(ctx, model.UserID(2))
	require.NoError(t, err)

	_, err = s.RedeemInvite(ctx, codeA, model.UserID(3), today)
	require.NoError(t, err)

	// Same invitee, any code: rejected before the freshness check.
	_, err = s.RedeemInvite(ctx, codeB, model.UserID(3), today)
	require.ErrorIs(t, err, ErrAlreadyInvited)
}

func TestRedeemInviteActiveUserRejected(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	today := "2026-08-28"

	code, err := s.InviteCodeForUser(ctx, model.UserID(1))
	require.NoError(t, err)

	// The invitee already used the service.
	_, _, err = s.ConsumeQuota(ctx, model.UserID(3), today)
	require.NoError(t, err)

	_, err = s.RedeemInvite(ctx, code, model.UserID(3), today)
	require.ErrorIs(t, err, ErrInviteeActive)
}

func TestRedeemInviteCap(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	today := "2026-08-28"

	code, err := s.InviteCodeForUser(ctx, model.UserID(1))
	require.NoError(t, err)

	for i := int64(100); i < 120; i++ {
		_, err := s.RedeemInvite(ctx, code, model.UserID(i), today)
		require.NoError(t, err)
	}

	_, err = s.RedeemInvite(ctx, code, model.UserID(999), today)
	require.ErrorIs(t, err, ErrInviteCapReached)

	// Reward credited exactly per redemption, 20 * 5.
	quota, err := s.QuotaForUser(ctx, model.UserID(1), today)
	require.NoError(t, err)
	require.Equal(t, 100, quota.PaidQuota)
}
