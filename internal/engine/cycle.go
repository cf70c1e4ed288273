package engine

// tripleKey names one representative combination of the combination
// search: the arena ids of the Q, T and F representatives.
type tripleKey struct {
	q, t, f uint32
}

// tripleHistory records the representative combinations a Normalizer call
// already tried.
//
// A leg group merged away mid-search restarts its iteration from the new
// list head. Without the history the restarted leg would revisit every
// combination it had already tried, and a merge triggered by one of them
// could restart the loop forever.
type tripleHistory struct {
	seen map[tripleKey]struct{}
}

func newTripleHistory() *tripleHistory {
	return &tripleHistory{seen: make(map[tripleKey]struct{})}
}

// WouldRepeat reports whether the combination was already tried.
func (h *tripleHistory) WouldRepeat(q, t, f uint32) bool {
	_, ok := h.seen[tripleKey{q, t, f}]
	return ok
}

// Record marks the combination as tried.
func (h *tripleHistory) Record(q, t, f uint32) {
	h.seen[tripleKey{q, t, f}] = struct{}{}
}

// Size returns the number of combinations tried.
func (h *tripleHistory) Size() int {
	return len(h.seen)
}
