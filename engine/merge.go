package engine

import (
	"cmp"
	"container/heap"
)

// mergeEntry is one stream head sitting in the merge heap.
type mergeEntry[T any, K cmp.Ordered] struct {
	key    K
	source int
	value  T
	stream <-chan T
}

type mergeHeap[T any, K cmp.Ordered] []mergeEntry[T, K]

func (h mergeHeap[T, K]) Len() int { return len(h) }

func (h mergeHeap[T, K]) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	// Tie-break on source index so equal keys interleave
	// deterministically.
	return h[i].source < h[j].source
}

func (h mergeHeap[T, K]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap[T, K]) Push(x any) { *h = append(*h, x.(mergeEntry[T, K])) }

func (h *mergeHeap[T, K]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Merge combines independently sorted streams into one sorted stream by
// repeatedly yielding the smallest head across all inputs, advancing
// only the stream that produced it. The result is lazy and finite when
// every input is finite. Each input must already be sorted by key.
func Merge[T any, K cmp.Ordered](key func(T) K, streams ...<-chan T) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)

		h := make(mergeHeap[T, K], 0, len(streams))
		enqueue := func(stream <-chan T, source int) {
			value, ok := <-stream
			if !ok {
				return
			}
			heap.Push(&h, mergeEntry[T, K]{
				key:    key(value),
				source: source,
				value:  value,
				stream: stream,
			})
		}

		for i, stream := range streams {
			enqueue(stream, i)
		}

		for h.Len() > 0 {
			e := heap.Pop(&h).(mergeEntry[T, K])
			out <- e.value
			enqueue(e.stream, e.source)
		}
	}()

	return out
}
