package relay

import (
	"context"
	"sort"

	"github.com/vaultgram/vaultgram-server/internal/model"
)

// ExpandGroup resolves the full sibling set of an album member. The network
// has no "fetch all items of group G" call, but siblings are contiguous in
// id-space, so a bounded window scan around the initial id is a correct and
// cheap approximation. Ids missing from the window (deleted or inaccessible)
// are tolerated silently. The result is ascending by id, reversed when the
// origin delivered newest-first, so album order survives reconstruction.
func ExpandGroup(ctx context.Context, origin Origin, chat string, initial *Item, window int) ([]Item, error) {
	if initial.GroupedID == model.SingleGroupID {
		return []Item{*initial}, nil
	}

	ids := make([]int64, 0, 2*window+1)
	for id := initial.ID - int64(window); id <= initial.ID+int64(window); id++ {
		if id > 0 {
			ids = append(ids, id)
		}
	}

	fetched, err := origin.Messages(ctx, chat, ids)
	if err != nil {
		return nil, err
	}

	group := make([]Item, 0, len(fetched))
	for _, item := range fetched {
		if item.GroupedID == initial.GroupedID {
			group = append(group, item)
		}
	}
	if len(group) == 0 {
		group = append(group, *initial)
	}

	ascending(group)
	return group, nil
}

// ExpandCommentGroup resolves the sibling set of a discussion comment by
// walking the root post's reply thread and filtering on the comment's group
// id. Thread iteration delivers newest-first, hence the final reversal.
func ExpandCommentGroup(ctx context.Context, origin Origin, chat string, rootID int64, comment *Item) ([]Item, error) {
	if comment.GroupedID == model.SingleGroupID {
		return []Item{*comment}, nil
	}

	replies, err := origin.ThreadReplies(ctx, chat, rootID)
	if err != nil {
		return nil, err
	}

	group := make([]Item, 0, len(replies))
	for _, reply := range replies {
		if reply.GroupedID == comment.GroupedID {
			group = append(group, reply)
		}
	}
	if len(group) == 0 {
		group = append(group, *comment)
	}

	ascending(group)
	return group, nil
}

// FindComment locates one comment under a root post by id. Nil when the
// thread does not contain it.
func FindComment(ctx context.Context, origin Origin, chat string, rootID, commentID int64) (*Item, error) {
	replies, err := origin.ThreadReplies(ctx, chat, rootID)
	if err != nil {
		return nil, err
	}
	for i := range replies {
		if replies[i].ID == commentID {
			return &replies[i], nil
		}
	}
	return nil, nil
}

func ascending(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
