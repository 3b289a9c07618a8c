package relay

import (
	"context"

	"github.com/vaultgram/vaultgram-server/internal/model"
)

// Item is one source message in client-neutral form. The orchestrator never
// touches the wire types of the messaging client, adapters map into this.
type Item struct {
	ID        int64
	GroupedID string // model.SingleGroupID when not part of an album.
	Media     model.MediaKind
	Text      string

	// Forward origin, set when the item is itself a forwarded copy of a
	// public channel post.
	ForwardedFromChat string
	ForwardedFromID   int64
}

// Forwarded reports whether the item carries a peelable forward origin.
func (i *Item) Forwarded() bool {
	return i.ForwardedFromChat != "" && i.ForwardedFromID > 0
}

// Origin reads from the source side of a relay: fetching messages, scanning
// id windows, walking reply threads, staging media to local files and
// joining restricted chats.
type Origin interface {
	// Message fetches one message. A nil item without error means the id
	// does not exist or is inaccessible.
	Message(ctx context.Context, chat string, id int64) (*Item, error)

	// Messages fetches an id range, ascending. Missing ids are simply
	// absent from the result, not errors.
	Messages(ctx context.Context, chat string, ids []int64) ([]Item, error)

	// ThreadReplies iterates the discussion replies of a root post. The
	// order is whatever the client delivers, callers normalize it.
	ThreadReplies(ctx context.Context, chat string, rootID int64) ([]Item, error)

	// Download stages the item's media into dir and returns the file path.
	Download(ctx context.Context, chat string, id int64, dir string) (string, error)

	// JoinInvite joins a restricted chat by invite hash.
	JoinInvite(ctx context.Context, hash string) error
}

// Archive writes canonical copies into the private archive chat.
type Archive interface {
	StoreText(ctx context.Context, text string) (int64, error)
	StoreFile(ctx context.Context, path string, kind model.MediaKind, caption string) (int64, error)
	StoreAlbum(ctx context.Context, paths []string, kinds []model.MediaKind, caption string) ([]int64, error)
}

// Courier re-delivers archived copies to the requesting user.
type Courier interface {
	Deliver(ctx context.Context, userID model.UserID, archiveMessageIDs []int64) error
}

// ChatInfo is the platform's classification of a chat.
type ChatInfo struct {
	Type      string // "channel", "group", "supergroup"...
	Username  string
	Protected bool // Forwarding restricted by the chat's policy.
}

// Channel reports whether the chat is a broadcast channel.
func (c *ChatInfo) Channel() bool {
	return c.Type == "channel"
}

// Classifier resolves a chat identifier to its platform-reported policy.
// Backed by the reverse-lookup HTTP endpoint.
type Classifier interface {
	Classify(ctx context.Context, chat string) (*ChatInfo, error)
}
