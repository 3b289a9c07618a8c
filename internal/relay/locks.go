package relay

import (
	"hash/maphash"
	"strconv"
	"sync"

	"github.com/vaultgram/vaultgram-server/internal/model"
)

// LockSet is a fixed-size striped lock keyed by user id. Memory is bounded
// by the shard count no matter how many users churn through; two users
// hashing to the same shard contend, which only means a spurious busy reply
// under collision, never a correctness issue.
type LockSet struct {
	shards []sync.Mutex
	seed   maphash.Seed
}

func NewLockSet(shards int) *LockSet {
	if shards < 1 {
		shards = 1
	}
	return &LockSet{
		shards: make([]sync.Mutex, shards),
		seed:   maphash.MakeSeed(),
	}
}

// TryAcquire claims the user's stripe without blocking. Returns the release
// func and true on success, nil and false when a relay for this stripe is
// already in flight.
func (l *LockSet) TryAcquire(userID model.UserID) (func(), bool) {
	shard := &l.shards[l.index(userID)]
	if !shard.TryLock() {
		return nil, false
	}
	return shard.Unlock, true
}

func (l *LockSet) index(userID model.UserID) uint64 {
	return maphash.String(l.seed, strconv.FormatInt(userID.ToInt64(), 10)) % uint64(len(l.shards))
}
