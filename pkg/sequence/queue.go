package sequence

import (
	"container/heap"
	"time"
)

// TimedItem is a queued value with its due time. Seq breaks ties in
// insertion order.
type TimedItem[T any] struct {
	Value T
	Due   time.Duration
	Seq   uint64
}

type timedHeap[T any] struct {
	items []*TimedItem[T]
}

func (h *timedHeap[T]) Len() int {
	return len(h.items)
}

func (h *timedHeap[T]) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.Due != b.Due {
		return a.Due < b.Due
	}
	return a.Seq < b.Seq
}

func (h *timedHeap[T]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *timedHeap[T]) Push(x any) {
	h.items = append(h.items, x.(*TimedItem[T]))
}

func (h *timedHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[0 : n-1]
	return item
}

// TimedQueue orders values by due time, then by insertion. It is not safe
// for concurrent use.
type TimedQueue[T any] struct {
	h   timedHeap[T]
	seq uint64
}

func NewTimedQueue[T any]() *TimedQueue[T] {
	q := &TimedQueue[T]{}
	heap.Init(&q.h)
	return q
}

// Push schedules value at due and returns its queue entry.
func (q *TimedQueue[T]) Push(value T, due time.Duration) *TimedItem[T] {
	q.seq++
	item := &TimedItem[T]{Value: value, Due: due, Seq: q.seq}
	heap.Push(&q.h, item)
	return item
}

// NextSeq is the sequence number the next Push will receive.
func (q *TimedQueue[T]) NextSeq() uint64 {
	return q.seq + 1
}

// Peek returns the earliest entry without removing it.
func (q *TimedQueue[T]) Peek() (*TimedItem[T], bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return q.h.items[0], true
}

// PopDue removes and returns the earliest entry if it is due at now and was
// pushed before seqLimit. A zero seqLimit accepts any entry.
func (q *TimedQueue[T]) PopDue(now time.Duration, seqLimit uint64) (*TimedItem[T], bool) {
	head, ok := q.Peek()
	if !ok || head.Due > now {
		return nil, false
	}
	if seqLimit == 0 || head.Seq < seqLimit {
		return heap.Pop(&q.h).(*TimedItem[T]), true
	}
	return q.popEligible(now, seqLimit)
}

// popEligible handles the rare case where the head was pushed after the
// limit but older due entries remain behind it.
func (q *TimedQueue[T]) popEligible(now time.Duration, seqLimit uint64) (*TimedItem[T], bool) {
	best := -1
	for i, item := range q.h.items {
		if item.Due > now || item.Seq >= seqLimit {
			continue
		}
		if best < 0 || q.h.Less(i, best) {
			best = i
		}
	}
	if best < 0 {
		return nil, false
	}
	return heap.Remove(&q.h, best).(*TimedItem[T]), true
}

func (q *TimedQueue[T]) Len() int {
	return q.h.Len()
}
