package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultgram/vaultgram-server/internal/model"
)

func TestSingleRelationRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	found, err := s.FindSingleRelation(ctx, "somechannel", 100, "-100999")
	require.NoError(t, err)
	require.Nil(t, found)

	relation := &model.MessageRelation{
		SourceChatID:    "somechannel",
		SourceMessageID: 100,
		TargetChatID:    "-100999",
		GroupedID:       model.SingleGroupID,
		TargetMessageID: 7,
	}
	require.NoError(t, s.UpsertRelation(ctx, relation))

	found, err = s.FindSingleRelation(ctx, "somechannel", 100, "-100999")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, int64(7), found.TargetMessageID)
	require.True(t, found.Single())
}

func TestUpsertRelationOverwritesTarget(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	relation := &model.MessageRelation{
		SourceChatID:    "ch",
		SourceMessageID: 1,
		TargetChatID:    "-100",
		GroupedID:       model.SingleGroupID,
		TargetMessageID: 10,
	}
	require.NoError(t, s.UpsertRelation(ctx, relation))

	relation.TargetMessageID = 11
	require.NoError(t, s.UpsertRelation(ctx, relation))

	found, err := s.FindSingleRelation(ctx, "ch", 1, "-100")
	require.NoError(t, err)
	require.Equal(t, int64(11), found.TargetMessageID)
}

func TestGroupRelationsOrderedBySourceID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// Inserted out of order on purpose.
	err := s.UpsertGroupRelations(ctx, "ch", []int64{5, 3, 4}, "-100", []int64{25, 23, 24}, "777")
	require.NoError(t, err)

	relations, err := s.FindGroupRelations(ctx, "ch", "777", "-100")
	require.NoError(t, err)
	require.Len(t, relations, 3)
	require.Equal(t, int64(3), relations[0].SourceMessageID)
	require.Equal(t, int64(4), relations[1].SourceMessageID)
	require.Equal(t, int64(5), relations[2].SourceMessageID)
	require.Equal(t, int64(23), relations[0].TargetMessageID)
}

func TestUpsertGroupRelationsUnevenPairs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// Only pairs with both sides present are recorded.
	err := s.UpsertGroupRelations(ctx, "ch", []int64{1, 2, 3}, "-100", []int64{21, 22}, "g1")
	require.NoError(t, err)

	relations, err := s.FindGroupRelations(ctx, "ch", "g1", "-100")
	require.NoError(t, err)
	require.Len(t, relations, 2)
}

func TestFindGroupedRelationPrefersGroupRow(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRelation(ctx, &model.MessageRelation{
		SourceChatID: "ch", SourceMessageID: 9, TargetChatID: "-100",
		GroupedID: model.SingleGroupID, TargetMessageID: 90,
	}))
	require.NoError(t, s.UpsertRelation(ctx, &model.MessageRelation{
		SourceChatID: "ch", SourceMessageID: 9, TargetChatID: "-100",
		GroupedID: "555", TargetMessageID: 91,
	}))

	found, err := s.FindGroupedRelation(ctx, "ch", 9, "-100")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "555", found.GroupedID)
}
