package services

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockStripes = 256

// accountLocks serialises balance mutations per account inside this process.
// Ids hash onto a fixed set of mutexes, taken in ascending stripe order so
// two transfers over the same pair can never deadlock.
type accountLocks struct {
	stripes [lockStripes]sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{}
}

func stripeOf(accountID string) int {
	return int(xxhash.Sum64String(accountID) % lockStripes)
}

func (l *accountLocks) lock(accountIDs ...string) (unlock func()) {
	seen := make(map[int]struct{}, len(accountIDs))
	stripes := make([]int, 0, len(accountIDs))
	for _, id := range accountIDs {
		stripe := stripeOf(id)
		if _, ok := seen[stripe]; ok {
			continue
		}
		seen[stripe] = struct{}{}
		stripes = append(stripes, stripe)
	}
	sort.Ints(stripes)
	for _, stripe := range stripes {
		l.stripes[stripe].Lock()
	}
	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			l.stripes[stripes[i]].Unlock()
		}
	}
}
