package relay

import "errors"

// Client adapters translate transport-specific failures into these so the
// orchestrator can route them to user replies without knowing the wire
// library.
var (
	// ErrUnreachable - the chat cannot be accessed or the identity was banned.
	ErrUnreachable = errors.New("chat is unreachable")
	// ErrInviteInvalid - the invite hash is invalid or expired.
	ErrInviteInvalid = errors.New("invite link is invalid or expired")
	// ErrAlreadyParticipant - the archival identity is already a member.
	ErrAlreadyParticipant = errors.New("already a participant")
	// ErrJoinPending - the join request awaits admin approval.
	ErrJoinPending = errors.New("join request pending approval")
	// ErrJoinDenied - banned, restricted, or otherwise refused.
	ErrJoinDenied = errors.New("join denied")
	// ErrRateLimited - the network applied flood control.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnsupportedMedia - the item's payload kind cannot be relayed.
	ErrUnsupportedMedia = errors.New("unsupported media kind")
)
