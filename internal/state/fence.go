package state

// Sequence fencing.
//
// Effects stamp every response with RequestSeq, the log sequence of the action
// that triggered the request. A response older than the newest one already
// applied is stale and dropped. A zero RequestSeq is unfenced: it always
// applies and never moves the fence.

// staleLoad reports whether a list response with seq must be dropped.
func staleLoad(applied, seq int64) bool {
	return seq != 0 && seq < applied
}

func advance(applied, seq int64) int64 {
	if seq > applied {
		return seq
	}
	return applied
}

// staleEntity reports whether a per-entity response with seq must be dropped.
func staleEntity(seqs map[string]int64, id string, seq int64) bool {
	return seq != 0 && seq < seqs[id]
}

// withSeq returns a copy of seqs recording seq for id.
func withSeq(seqs map[string]int64, id string, seq int64) map[string]int64 {
	if seq == 0 || seqs[id] >= seq {
		return seqs
	}
	next := make(map[string]int64, len(seqs)+1)
	for k, v := range seqs {
		next[k] = v
	}
	next[id] = seq
	return next
}

// withoutSeq returns a copy of seqs with id removed.
func withoutSeq(seqs map[string]int64, id string) map[string]int64 {
	if _, ok := seqs[id]; !ok {
		return seqs
	}
	next := make(map[string]int64, len(seqs))
	for k, v := range seqs {
		if k != id {
			next[k] = v
		}
	}
	return next
}
