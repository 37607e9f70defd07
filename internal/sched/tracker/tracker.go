package tracker

// Tracker keeps a bounded sliding window of recent per-provider outcomes and
// exposes a rolling success rate used for adaptive tie-breaking between
// equal-priority providers.
type Tracker struct {
	window     int
	byProvider map[string]*ring
}

type ring struct {
	buf  []bool
	next int
	n    int
	succ int
}

func New(window int) *Tracker {
	if window < 1 {
		window = 1
	}
	return &Tracker{window: window, byProvider: map[string]*ring{}}
}

func (t *Tracker) Record(providerID string, ok bool) {
	r := t.byProvider[providerID]
	if r == nil {
		r = &ring{buf: make([]bool, t.window)}
		t.byProvider[providerID] = r
	}
	if r.n == len(r.buf) {
		if r.buf[r.next] {
			r.succ--
		}
	} else {
		r.n++
	}
	r.buf[r.next] = ok
	if ok {
		r.succ++
	}
	r.next = (r.next + 1) % len(r.buf)
}

// Rate returns the fraction of successes in the window. Providers with no
// samples yet sit at a neutral 0.5 so they are neither favored nor buried.
func (t *Tracker) Rate(providerID string) float64 {
	r := t.byProvider[providerID]
	if r == nil || r.n == 0 {
		return 0.5
	}
	return float64(r.succ) / float64(r.n)
}

// Samples reports how many outcomes are currently in the window.
func (t *Tracker) Samples(providerID string) int {
	r := t.byProvider[providerID]
	if r == nil {
		return 0
	}
	return r.n
}

func (t *Tracker) Reset() { t.byProvider = map[string]*ring{} }
