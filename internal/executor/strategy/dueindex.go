package strategy

import (
	"container/heap"
	"sync"
	"time"
)

// DueRef identifies one indexed strategy and the time it becomes due.
type DueRef struct {
	StrategyID     string
	AccountAddress string
	DueAt          time.Time
}

// dueIndex is the time-ordered readiness index. A strategy id is present
// while, and only while, the strategy is active. All access is serialized
// behind one mutex; the index is owned by the strategy service and never
// exposed directly.
//
// The heap carries stale entries after reschedules; the current map is
// authoritative. Each insert takes a fresh generation number so a stale
// heap entry is recognizable even when a reschedule lands on the same due
// time, and stale entries are dropped lazily during reads.
type dueIndex struct {
	mu       sync.Mutex
	entries  dueHeap
	current  map[string]indexState
	accounts map[string]string
	nextGen  uint64
}

type indexState struct {
	dueAt time.Time
	gen   uint64
}

func newDueIndex() *dueIndex {
	return &dueIndex{
		current:  make(map[string]indexState),
		accounts: make(map[string]string),
	}
}

// insert adds or reschedules a strategy. Any previous entry for the same id
// becomes stale and is ignored on read.
func (ix *dueIndex) insert(strategyID, accountAddress string, dueAt time.Time) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.nextGen++
	gen := ix.nextGen
	ix.current[strategyID] = indexState{dueAt: dueAt, gen: gen}
	ix.accounts[strategyID] = accountAddress
	heap.Push(&ix.entries, dueEntry{
		strategyID:     strategyID,
		accountAddress: accountAddress,
		dueAt:          dueAt,
		gen:            gen,
	})
}

// remove drops a strategy from the index.
func (ix *dueIndex) remove(strategyID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	delete(ix.current, strategyID)
	delete(ix.accounts, strategyID)
}

// contains reports whether the strategy is currently indexed.
func (ix *dueIndex) contains(strategyID string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	_, ok := ix.current[strategyID]
	return ok
}

// indexedAt returns the authoritative due time for a strategy, if indexed.
func (ix *dueIndex) indexedAt(strategyID string) (time.Time, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	state, ok := ix.current[strategyID]
	return state.dueAt, ok
}

// dueAsOf returns every indexed strategy whose due time has passed. The
// read is non-destructive: entries stay indexed until removed or
// rescheduled. Stale heap entries are pruned as they surface.
func (ix *dueIndex) dueAsOf(now time.Time) []DueRef {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var due []DueRef
	var live []dueEntry

	for ix.entries.Len() > 0 {
		top := ix.entries[0]
		if top.dueAt.After(now) {
			break
		}
		heap.Pop(&ix.entries)

		state, ok := ix.current[top.strategyID]
		if !ok || state.gen != top.gen {
			continue // stale
		}
		due = append(due, DueRef{
			StrategyID:     top.strategyID,
			AccountAddress: top.accountAddress,
			DueAt:          top.dueAt,
		})
		live = append(live, top)
	}

	for _, entry := range live {
		heap.Push(&ix.entries, entry)
	}
	return due
}

// size returns the number of indexed strategies.
func (ix *dueIndex) size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	return len(ix.current)
}

type dueEntry struct {
	strategyID     string
	accountAddress string
	dueAt          time.Time
	gen            uint64
}

type dueHeap []dueEntry

func (h dueHeap) Len() int           { return len(h) }
func (h dueHeap) Less(i, j int) bool { return h[i].dueAt.Before(h[j].dueAt) }
func (h dueHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *dueHeap) Push(x any) {
	*h = append(*h, x.(dueEntry))
}

func (h *dueHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
