package storage

import "errors"

var (
	// ErrOrderNotFound - no order with the given id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotPending - the order already reached a terminal status.
	ErrOrderNotPending = errors.New("order is not pending")

	// ErrInviteInvalidCode - no inviter owns the presented code.
	ErrInviteInvalidCode = errors.New("invalid invite code")
	// ErrInviteCapReached - the inviter already redeemed the maximum referrals.
	ErrInviteCapReached = errors.New("invite cap reached")
	// ErrAlreadyInvited - the invitee was already claimed by some referral.
	ErrAlreadyInvited = errors.New("user already invited")
	// ErrSelfInvite - a user presented their own code.
	ErrSelfInvite = errors.New("cannot redeem own invite code")
	// ErrInviteeActive - the invitee already used the service before redeeming.
	ErrInviteeActive = errors.New("invitee is not a new user")
)
