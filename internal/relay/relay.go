// Package relay is the forward orchestrator: it turns one link-bearing
// message into one archived, re-delivered relay, gated by quota, serialized
// per user, deduplicated against the relation store.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
	"github.com/vaultgram/vaultgram-server/internal/config"
	"github.com/vaultgram/vaultgram-server/internal/link"
	"github.com/vaultgram/vaultgram-server/internal/log"
	"github.com/vaultgram/vaultgram-server/internal/metrics"
	"github.com/vaultgram/vaultgram-server/internal/model"
	"github.com/vaultgram/vaultgram-server/internal/storage"
)

// User-facing replies of the relay flow.
const (
	ReplyBusy        = "You already have a relay in progress. Wait for it to finish before sending a new link."
	ReplyOverloaded  = "The service is under heavy load right now, try again in a moment..."
	ReplyExhausted   = "You are out of relays for today! The free allowance resets at midnight UTC, or use /buy for more."
	ReplyNoNeed      = "This message can be forwarded directly, no need to use this service."
	ReplyBadLink     = "Invalid link."
	ReplyInternal    = "Internal error, please try again later."
	ReplyUnsupported = "This content type cannot be relayed."
	ReplyUnreachable = "This chat cannot be accessed, or you were removed from it."

	ReplyJoined         = "Joined! Now send the link of the message you want relayed."
	ReplyInviteInvalid  = "The invite link is invalid or has expired."
	ReplyJoinPending    = "The join request awaits approval, send the message link again later."
	ReplyJoinFailed     = "Could not join this chat, contact the administrator."
	ReplyPrivateLocked  = "Private chat. Send its invite link first, then the message link."
	ReplyCommentLocked  = "Send a link to any post of the channel first, then the comment link."
)

// Outcome is the result of one inbound text. An empty Reply means the text
// was not addressed to the relay flow at all.
type Outcome struct {
	Reply   string
	Relayed bool
}

type Orchestrator struct {
	storage    *storage.Storage
	origin     Origin
	archive    Archive
	courier    Courier
	classifier Classifier
	cache      *ristretto.Cache[string, []int64]
	locks      *LockSet
	overloaded *atomic.Bool
	metrics    metrics.Metrics
	logger     *slog.Logger

	archiveChat string
	window      int
	maxHops     int
	tempDir     string
}

func NewOrchestrator(
	cfg *config.Config,
	store *storage.Storage,
	origin Origin,
	archive Archive,
	courier Courier,
	classifier Classifier,
	overloaded *atomic.Bool,
	m metrics.Metrics,
	logger *slog.Logger,
) (*Orchestrator, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []int64]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		storage:     store,
		origin:      origin,
		archive:     archive,
		courier:     courier,
		classifier:  classifier,
		cache:       cache,
		locks:       NewLockSet(cfg.Relay.LockShards),
		overloaded:  overloaded,
		metrics:     m,
		logger:      logger,
		archiveChat: strconv.FormatInt(cfg.Telegram.ArchiveChatID, 10),
		window:      cfg.Relay.GroupWindow,
		maxHops:     cfg.Relay.MaxForwardHops,
		tempDir:     cfg.Relay.TempDir,
	}, nil
}

// Close releases the dedup cache.
func (o *Orchestrator) Close() {
	o.cache.Close()
}

// Process handles one inbound free-text message. Invite links run the join
// flow; message links run the relay flow; anything else is ignored. Every
// failure of a single attempt is converted to a reply here, never
// propagated to the poller.
func (o *Orchestrator) Process(ctx context.Context, userID model.UserID, text string) Outcome {
	if invite := link.ParseInvite(text); invite != nil {
		return o.join(ctx, invite)
	}
	if !link.IsMessageLink(text) {
		return Outcome{}
	}

	if o.overloaded.Load() {
		return Outcome{Reply: ReplyOverloaded}
	}

	parsed, err := link.Parse(text)
	if err != nil {
		return Outcome{Reply: ReplyBadLink}
	}

	// Admission before the locked section: a drained balance never takes
	// the stripe.
	quota, err := o.storage.QuotaForUser(ctx, userID, storage.CurrentDate())
	if err != nil {
		o.logger.Error("quota lookup failed", slog.Int64("user", userID.ToInt64()), log.Err(err))
		return Outcome{Reply: ReplyInternal}
	}
	if quota.Exhausted() {
		return Outcome{Reply: ReplyExhausted}
	}

	release, ok := o.locks.TryAcquire(userID)
	if !ok {
		return Outcome{Reply: ReplyBusy}
	}
	defer release()

	outcome, err := o.relay(ctx, userID, parsed)
	if err != nil {
		o.logger.Error("relay attempt failed",
			slog.Int64("user", userID.ToInt64()),
			slog.String("chat", parsed.Chat),
			slog.Int64("message", parsed.MessageID),
			log.Err(err))
		o.metrics.LogUserEvent("relay_failed", userID.ToInt64(), map[string]interface{}{"count": 1})
		return Outcome{Reply: ReplyInternal}
	}
	return outcome
}

func (o *Orchestrator) join(ctx context.Context, invite *link.Invite) Outcome {
	err := o.origin.JoinInvite(ctx, invite.Hash)
	switch {
	case err == nil, errors.Is(err, ErrAlreadyParticipant):
		return Outcome{Reply: ReplyJoined}
	case errors.Is(err, ErrInviteInvalid):
		return Outcome{Reply: ReplyInviteInvalid}
	case errors.Is(err, ErrJoinPending):
		return Outcome{Reply: ReplyJoinPending}
	case errors.Is(err, ErrJoinDenied), errors.Is(err, ErrRateLimited):
		o.logger.Info("join refused", slog.String("hash", invite.Hash), log.Err(err))
		return Outcome{Reply: ReplyJoinFailed}
	default:
		o.logger.Error("join failed", slog.String("hash", invite.Hash), log.Err(err))
		return Outcome{Reply: ReplyJoinFailed}
	}
}

func (o *Orchestrator) relay(ctx context.Context, userID model.UserID, l *link.Link) (Outcome, error) {
	chat := l.Chat

	// Pre-routing for public chats: the platform already tells us whether
	// forwarding is restricted. Comments bypass the check, their policy
	// follows the discussion group, not the channel.
	if !l.Internal && !l.Comment() {
		info, err := o.classifier.Classify(ctx, chat)
		if err != nil {
			return Outcome{}, err
		}
		if !info.Protected {
			return Outcome{Reply: ReplyNoNeed}, nil
		}
	}

	item, err := o.origin.Message(ctx, chat, l.MessageID)
	if errors.Is(err, ErrUnreachable) {
		return Outcome{Reply: ReplyUnreachable}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	if item == nil {
		if l.Thread {
			return Outcome{Reply: ReplyCommentLocked}, nil
		}
		return Outcome{Reply: ReplyPrivateLocked}, nil
	}

	// Comment links address a reply under the root post, swap the target.
	if l.Comment() {
		comment, err := FindComment(ctx, o.origin, chat, l.MessageID, l.CommentID)
		if err != nil {
			return Outcome{}, err
		}
		if comment == nil {
			return Outcome{Reply: ReplyBadLink}, nil
		}
		return o.relayComment(ctx, userID, chat, l.MessageID, comment, l.Single)
	}

	// A forwarded copy of a public post is relayed from its origin instead,
	// peeled hop by hop with a hard bound.
	if !l.Thread {
		chat, item = o.peelForwardOrigin(ctx, chat, item)
	}

	if done, out, err := o.deliverArchived(ctx, userID, chat, item); done || err != nil {
		return out, err
	}

	group := []Item{*item}
	if !l.Single {
		group, err = ExpandGroup(ctx, o.origin, chat, item, o.window)
		if err != nil {
			return Outcome{}, err
		}
	}
	return o.archiveAndDeliver(ctx, userID, chat, group)
}

func (o *Orchestrator) relayComment(ctx context.Context, userID model.UserID, chat string, rootID int64, comment *Item, single bool) (Outcome, error) {
	if done, out, err := o.deliverArchived(ctx, userID, chat, comment); done || err != nil {
		return out, err
	}

	group := []Item{*comment}
	if !single {
		var err error
		group, err = ExpandCommentGroup(ctx, o.origin, chat, rootID, comment)
		if err != nil {
			return Outcome{}, err
		}
	}
	return o.archiveAndDeliver(ctx, userID, chat, group)
}

// peelForwardOrigin walks forwarded-from links toward the original public
// post. The loop is bounded: a cyclic or pathological forward chain stops at
// maxHops instead of recursing forever.
func (o *Orchestrator) peelForwardOrigin(ctx context.Context, chat string, item *Item) (string, *Item) {
	for hop := 0; hop < o.maxHops && item.Forwarded(); hop++ {
		next, err := o.origin.Message(ctx, item.ForwardedFromChat, item.ForwardedFromID)
		if err != nil || next == nil {
			break
		}
		chat = item.ForwardedFromChat
		item = next
	}
	return chat, item
}

// deliverArchived is the dedup fast path: cache first, then the relation
// store, singly form before grouped. A hit re-delivers from the archive
// without touching source media, then debits quota.
func (o *Orchestrator) deliverArchived(ctx context.Context, userID model.UserID, chat string, item *Item) (bool, Outcome, error) {
	key := cacheKey(chat, item.ID)
	if ids, ok := o.cache.Get(key); ok {
		out, err := o.deliverAndDebit(ctx, userID, ids)
		return true, out, err
	}

	relation, err := o.storage.FindSingleRelation(ctx, chat, item.ID, o.archiveChat)
	if err != nil {
		return false, Outcome{}, err
	}
	if relation == nil {
		relation, err = o.storage.FindGroupedRelation(ctx, chat, item.ID, o.archiveChat)
		if err != nil {
			return false, Outcome{}, err
		}
	}
	if relation == nil {
		return false, Outcome{}, nil
	}

	var ids []int64
	if relation.Single() {
		ids = []int64{relation.TargetMessageID}
	} else {
		relations, err := o.storage.FindGroupRelations(ctx, chat, relation.GroupedID, o.archiveChat)
		if err != nil {
			return false, Outcome{}, err
		}
		for _, r := range relations {
			ids = append(ids, r.TargetMessageID)
		}
	}

	o.cache.Set(key, ids, int64(len(ids)))
	out, err := o.deliverAndDebit(ctx, userID, ids)
	return true, out, err
}

func (o *Orchestrator) archiveAndDeliver(ctx context.Context, userID model.UserID, chat string, group []Item) (Outcome, error) {
	// Staging is scoped to this attempt and removed on every exit path.
	dir, err := os.MkdirTemp(o.tempDir, "relay-")
	if err != nil {
		return Outcome{}, err
	}
	defer os.RemoveAll(dir)

	var (
		archived  []int64
		sourceIDs []int64
	)
	if len(group) == 1 {
		item := &group[0]
		id, err := o.archiveOne(ctx, chat, item, dir)
		if errors.Is(err, ErrUnsupportedMedia) {
			return Outcome{Reply: ReplyUnsupported}, nil
		}
		if err != nil {
			return Outcome{}, err
		}
		archived = []int64{id}
		sourceIDs = []int64{item.ID}

		if err := o.storage.UpsertRelation(ctx, &model.MessageRelation{
			SourceChatID:    chat,
			SourceMessageID: item.ID,
			TargetChatID:    o.archiveChat,
			GroupedID:       model.SingleGroupID,
			TargetMessageID: id,
		}); err != nil {
			return Outcome{}, err
		}
	} else {
		archived, sourceIDs, err = o.archiveAlbum(ctx, chat, group, dir)
		if errors.Is(err, ErrUnsupportedMedia) {
			return Outcome{Reply: ReplyUnsupported}, nil
		}
		if err != nil {
			return Outcome{}, err
		}

		if err := o.storage.UpsertGroupRelations(ctx, chat, sourceIDs, o.archiveChat, archived, group[0].GroupedID); err != nil {
			return Outcome{}, err
		}
	}

	o.cache.Set(cacheKey(chat, sourceIDs[0]), archived, int64(len(archived)))
	o.metrics.LogUserEvent("relay_archived", userID.ToInt64(), map[string]interface{}{
		"items": len(archived),
	})

	return o.deliverAndDebit(ctx, userID, archived)
}

func (o *Orchestrator) archiveOne(ctx context.Context, chat string, item *Item, dir string) (int64, error) {
	switch item.Media {
	case model.MediaNone:
		return o.archive.StoreText(ctx, item.Text)
	case model.MediaPhoto, model.MediaDocumentVideo, model.MediaDocumentAudio, model.MediaDocumentOther:
		path, err := o.origin.Download(ctx, chat, item.ID, dir)
		if err != nil {
			return 0, err
		}
		return o.archive.StoreFile(ctx, path, item.Media, item.Text)
	case model.MediaUnsupported:
		return 0, ErrUnsupportedMedia
	default:
		return 0, fmt.Errorf("unknown media kind %d", item.Media)
	}
}

// archiveAlbum stages every relayable member, stores them as one album and
// returns the archived ids with the matching source ids. Members that carry
// no transferable payload are skipped rather than failing the whole album.
func (o *Orchestrator) archiveAlbum(ctx context.Context, chat string, group []Item, dir string) ([]int64, []int64, error) {
	var (
		paths     []string
		kinds     []model.MediaKind
		sourceIDs []int64
		caption   string
	)
	for i := range group {
		item := &group[i]
		if caption == "" && item.Text != "" {
			caption = item.Text
		}
		switch item.Media {
		case model.MediaPhoto, model.MediaDocumentVideo, model.MediaDocumentAudio, model.MediaDocumentOther:
			path, err := o.origin.Download(ctx, chat, item.ID, dir)
			if err != nil {
				return nil, nil, err
			}
			paths = append(paths, path)
			kinds = append(kinds, item.Media)
			sourceIDs = append(sourceIDs, item.ID)
		case model.MediaNone, model.MediaUnsupported:
			continue
		}
	}
	if len(paths) == 0 {
		return nil, nil, ErrUnsupportedMedia
	}

	archived, err := o.archive.StoreAlbum(ctx, paths, kinds, caption)
	if err != nil {
		return nil, nil, err
	}
	return archived, sourceIDs, nil
}

// deliverAndDebit re-delivers archived copies and only then consumes one
// quota unit. A failed delivery costs the user nothing.
func (o *Orchestrator) deliverAndDebit(ctx context.Context, userID model.UserID, archived []int64) (Outcome, error) {
	if err := o.courier.Deliver(ctx, userID, archived); err != nil {
		return Outcome{}, err
	}

	quota, ok, err := o.storage.ConsumeQuota(ctx, userID, storage.CurrentDate())
	if err != nil {
		return Outcome{}, err
	}

	reply := "Done!"
	if ok {
		reply = fmt.Sprintf("Done! Remaining today: %d free + %d paid.", quota.FreeQuota, quota.PaidQuota)
	}
	return Outcome{Reply: reply, Relayed: true}, nil
}

func cacheKey(chat string, id int64) string {
	return chat + ":" + strconv.FormatInt(id, 10)
}
