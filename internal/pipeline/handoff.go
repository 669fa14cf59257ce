package pipeline

// Handoff is the bounded queue between segment workers and the upload drain.
// Put blocks while the queue is full; nothing is ever dropped.
type Handoff struct {
	ch chan string
}

func NewHandoff(capacity int) *Handoff {
	if capacity <= 0 {
		capacity = 1
	}
	return &Handoff{ch: make(chan string, capacity)}
}

func (h *Handoff) Put(path string) {
	h.ch <- path
}

// Close signals that no worker will Put again. Only the supervisor calls it.
func (h *Handoff) Close() {
	close(h.ch)
}

func (h *Handoff) C() <-chan string {
	return h.ch
}

func (h *Handoff) Len() int {
	return len(h.ch)
}

func (h *Handoff) Cap() int {
	return cap(h.ch)
}
