// Package link parses shared t.me links into addressable message
// coordinates: which chat, which message, and the routing flags carried in
// the query string. Invite links are recognized separately, they start the
// join flow instead of the relay flow.
package link

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrNotALink - the text is not a recognizable t.me message link.
	ErrNotALink = errors.New("not a telegram message link")
	// ErrBadMessageID - the link path does not end in a numeric message id.
	ErrBadMessageID = errors.New("invalid message id in link")
	// ErrBadChat - the link path carries no usable chat identifier.
	ErrBadChat = errors.New("invalid chat identifier in link")
)

// Link is a parsed message link.
type Link struct {
	Chat      string // Public slug, or the internal numeric id as text.
	Internal  bool   // True when Chat is an internal numeric id (t.me/c/...).
	MessageID int64
	Single    bool  // ?single: relay just this item, not its whole album.
	CommentID int64 // ?comment=<id>: the target is a comment under MessageID.
	Thread    bool  // ?thread: the link addresses a message inside a thread.
}

// Comment reports whether the link addresses a discussion comment.
func (l *Link) Comment() bool {
	return l.CommentID != 0
}

// Invite is a parsed private-chat invite link.
type Invite struct {
	Hash string
}

func isTelegramHost(host string) bool {
	return host == "t.me" || host == "telegram.me" || host == "www.t.me" || host == "www.telegram.me"
}

// IsMessageLink reports whether the text looks like a t.me link at all,
// cheap pre-filter before Parse. Accepts the same hosts Parse does.
func IsMessageLink(text string) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "https://") && !strings.HasPrefix(text, "http://") {
		return false
	}
	u, err := url.Parse(text)
	return err == nil && isTelegramHost(u.Host)
}

// ParseInvite recognizes t.me/+hash and t.me/joinchat/hash forms. Returns
// nil when the text is not an invite link.
func ParseInvite(text string) *Invite {
	text = strings.TrimSpace(text)
	u, err := url.Parse(text)
	if err != nil || !isTelegramHost(u.Host) {
		return nil
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil
	}
	switch {
	case strings.HasPrefix(parts[0], "+"):
		hash := strings.TrimPrefix(parts[0], "+")
		if hash == "" {
			return nil
		}
		return &Invite{Hash: hash}
	case parts[0] == "joinchat" && len(parts) > 1 && parts[1] != "":
		return &Invite{Hash: parts[1]}
	}
	return nil
}

// Parse extracts the chat identifier, message id and routing flags from a
// message link. The fragment is dropped, the query string is honored.
//
// Recognized path shapes:
//
//	t.me/<slug>/<id>            public chat
//	t.me/c/<internal>/<id>      private chat by internal id
//	t.me/s/<slug>/<id>          public chat, web preview form
//	t.me/<slug>/<topic>/<id>    topic chats, the last segment is the message
func Parse(text string) (*Link, error) {
	text = strings.TrimSpace(text)
	if !IsMessageLink(text) {
		return nil, ErrNotALink
	}

	u, err := url.Parse(text)
	if err != nil || !isTelegramHost(u.Host) {
		return nil, ErrNotALink
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return nil, ErrNotALink
	}

	chat := parts[0]
	if chat == "c" || chat == "s" {
		if len(parts) < 3 {
			return nil, ErrNotALink
		}
		chat = parts[1]
	}
	if chat == "" {
		return nil, ErrBadChat
	}

	messageID, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil || messageID <= 0 {
		return nil, ErrBadMessageID
	}

	params := u.Query()

	var commentID int64
	if raw := params.Get("comment"); raw != "" {
		commentID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || commentID <= 0 {
			return nil, ErrBadMessageID
		}
	}

	internal := parts[0] == "c"
	if !internal {
		// Bare numeric first segments address private chats too.
		if _, err := strconv.ParseInt(chat, 10, 64); err == nil {
			internal = true
		}
	}

	return &Link{
		Chat:      chat,
		Internal:  internal,
		MessageID: messageID,
		Single:    params.Has("single"),
		CommentID: commentID,
		Thread:    params.Has("thread"),
	}, nil
}
