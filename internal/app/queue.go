package app

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/dkeye/roulette/internal/domain"
)

// Bucket is the shuffled set of pairing candidates of one mode.
type Bucket struct {
	Mode domain.Mode
	IDs  []domain.SessionID
}

// Queue is the ordered waiting pool. Insertion is deduplicated, so a session
// appears at most once. Owned by the orchestrator loop.
type Queue struct {
	order []domain.SessionID
	index map[domain.SessionID]struct{}
	intn  func(n int) int
}

type QueueOption func(*Queue)

// WithRandSource makes shuffles reproducible.
func WithRandSource(src rand.Source) QueueOption {
	return func(q *Queue) { q.intn = rand.New(src).IntN }
}

func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		index: make(map[domain.SessionID]struct{}),
		intn:  rand.IntN,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends sid unless it is already waiting. It reports whether sid was added.
func (q *Queue) Push(sid domain.SessionID) bool {
	if _, ok := q.index[sid]; ok {
		return false
	}
	q.index[sid] = struct{}{}
	q.order = append(q.order, sid)
	return true
}

// Remove drops sid. It reports whether sid was present.
func (q *Queue) Remove(sid domain.SessionID) bool {
	if _, ok := q.index[sid]; !ok {
		return false
	}
	delete(q.index, sid)
	q.order = slices.DeleteFunc(q.order, func(s domain.SessionID) bool { return s == sid })
	return true
}

func (q *Queue) Contains(sid domain.SessionID) bool {
	_, ok := q.index[sid]
	return ok
}

func (q *Queue) Len() int { return len(q.order) }

// Snapshot returns the waiting order.
func (q *Queue) Snapshot() []domain.SessionID { return slices.Clone(q.order) }

// Candidates keeps the entries accepted by eligible, groups them by the mode
// eligible reports and shuffles each group (Fisher-Yates). Buckets come back
// sorted by mode.
func (q *Queue) Candidates(eligible func(domain.SessionID) (domain.Mode, bool)) []Bucket {
	byMode := make(map[domain.Mode][]domain.SessionID)
	for _, sid := range q.order {
		mode, ok := eligible(sid)
		if !ok {
			continue
		}
		byMode[mode] = append(byMode[mode], sid)
	}

	out := make([]Bucket, 0, len(byMode))
	for mode, ids := range byMode {
		q.shuffle(ids)
		out = append(out, Bucket{Mode: mode, IDs: ids})
	}
	slices.SortFunc(out, func(a, b Bucket) int { return cmp.Compare(a.Mode, b.Mode) })
	return out
}

func (q *Queue) shuffle(ids []domain.SessionID) {
	for i := len(ids) - 1; i > 0; i-- {
		j := q.intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// CountByMode is used for stats only.
func (q *Queue) CountByMode(modeOf func(domain.SessionID) (domain.Mode, bool)) map[domain.Mode]int {
	out := make(map[domain.Mode]int)
	for _, sid := range q.order {
		if m, ok := modeOf(sid); ok {
			out[m]++
		}
	}
	return out
}
