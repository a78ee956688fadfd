package snapshot

// window keeps a rolling slice of recent values so the builder can hand
// the evaluator its short history slices without unbounded growth.
type window struct {
	max int
	buf []float64
}

func newWindow(max int) *window {
	if max <= 0 {
		max = 16
	}
	return &window{max: max}
}

func (w *window) Add(v float64) {
	w.buf = append(w.buf, v)
	if len(w.buf) > w.max {
		w.buf = w.buf[len(w.buf)-w.max:]
	}
}

func (w *window) Values() []float64 {
	out := make([]float64, len(w.buf))
	copy(out, w.buf)
	return out
}

func (w *window) Len() int { return len(w.buf) }
