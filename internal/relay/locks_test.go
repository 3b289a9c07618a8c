package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockSetExclusive(t *testing.T) {
	locks := NewLockSet(64)

	release, ok := locks.TryAcquire(1)
	require.True(t, ok)

	_, ok = locks.TryAcquire(1)
	require.False(t, ok)

	release()

	release, ok = locks.TryAcquire(1)
	require.True(t, ok)
	release()
}

func TestLockSetSingleShardDegenerate(t *testing.T) {
	locks := NewLockSet(0)

	release, ok := locks.TryAcquire(1)
	require.True(t, ok)

	// One shard: every user contends on it.
	_, ok = locks.TryAcquire(2)
	require.False(t, ok)

	release()
	release, ok = locks.TryAcquire(2)
	require.True(t, ok)
	release()
}
