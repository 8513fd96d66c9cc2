package stats

// window is a fixed size sliding window over int64 samples with a running
// sum. Once full, every push evicts the oldest sample.
type window struct {
	samples []int64
	next    int
	full    bool
	sum     int64
}

func newWindow(size int64) *window {
	if size < 1 {
		size = 1
	}
	return &window{samples: make([]int64, size)}
}

func (w *window) push(x int64) {
	w.sum += x - w.samples[w.next]
	w.samples[w.next] = x

	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

func (w *window) len() int64 {
	if w.full {
		return int64(len(w.samples))
	}
	return int64(w.next)
}

// avg is 0 for an empty window.
func (w *window) avg() float64 {
	if w.len() == 0 {
		return 0
	}
	return float64(w.sum) / float64(w.len())
}
