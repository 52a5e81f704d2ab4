package media

// StreamSet is one video handle plus 0-3 audio stems, bound to the primary's
// timeline. Transport commands must reach every member in set order within a
// single synchronous pass; the engine owns that fan-out.
type StreamSet struct {
	Primary     Handle
	Secondaries []Handle
}

// NewStreamSet builds a stream set. Nil secondaries are dropped so callers
// can pass optional stems directly.
func NewStreamSet(primary Handle, secondaries ...Handle) *StreamSet {
	set := &StreamSet{Primary: primary}
	for _, s := range secondaries {
		if s != nil {
			set.Secondaries = append(set.Secondaries, s)
		}
	}
	return set
}

// Ready reports whether every handle exists. Transport commands issued
// before Ready are silent no-ops.
func (s *StreamSet) Ready() bool {
	if s == nil || s.Primary == nil {
		return false
	}
	for _, sec := range s.Secondaries {
		if sec == nil {
			return false
		}
	}
	return true
}

// All returns the members in fan-out order, primary first.
func (s *StreamSet) All() []Handle {
	out := make([]Handle, 0, 1+len(s.Secondaries))
	out = append(out, s.Primary)
	out = append(out, s.Secondaries...)
	return out
}

// Secondary returns the stem of the given kind, if present.
func (s *StreamSet) Secondary(kind Kind) (Handle, bool) {
	for _, sec := range s.Secondaries {
		if sec.Kind() == kind {
			return sec, true
		}
	}
	return nil, false
}
