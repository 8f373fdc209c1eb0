package store

// Sequence hands out increasing integer ids for one collection,
// independent of what the collection currently holds.
type Sequence struct {
	last int
}

// NewSequence starts a sequence whose first value is start+1.
func NewSequence(start int) Sequence {
	return Sequence{last: start}
}

// Next advances the sequence and returns the new value.
func (s *Sequence) Next() int {
	s.last++
	return s.last
}

// Last returns the most recently issued value.
func (s *Sequence) Last() int { return s.last }
