// Package memory provides the in-process request queue.
package memory

import (
	"container/heap"
	"sync"

	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
)

// Queue is a thread-safe min-priority queue of fetch requests. Requests with
// equal priority leave in the order they were enqueued.
type Queue struct {
	mu    sync.Mutex
	items requestHeap
	seq   uint64
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue inserts req keyed by its priority.
func (q *Queue) Enqueue(req crawler.FetchRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	heap.Push(&q.items, entry{req: req, seq: q.seq})
}

// TryDequeue removes the lowest-priority request without blocking.
func (q *Queue) TryDequeue() (crawler.FetchRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return crawler.FetchRequest{}, false
	}
	e, _ := heap.Pop(&q.items).(entry)
	return e.req, true
}

// IsEmpty reports whether no request is pending.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type entry struct {
	req crawler.FetchRequest
	seq uint64
}

type requestHeap []entry

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].req.Priority != h[j].req.Priority {
		return h[i].req.Priority < h[j].req.Priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *requestHeap) Push(x any) {
	e, _ := x.(entry)
	*h = append(*h, e)
}

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = entry{}
	*h = old[:n-1]
	return e
}
