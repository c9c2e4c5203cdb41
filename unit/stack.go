package unit

// Stack records the loads in progress, innermost last. The kind on top selects
// which pre_/post_ hooks apply to the load currently completing.
type Stack struct{ frames []Frame }

// Push records the start of a load.
func (s *Stack) Push(f Frame) { s.frames = append(s.frames, f) }

// Pop removes the innermost load. Popping an empty stack is a bookkeeping bug
// and panics.
func (s *Stack) Pop() Frame {
	n := len(s.frames)
	if n == 0 {
		panic("unit: pop of empty load stack")
	}
	f := s.frames[n-1]
	s.frames = s.frames[:n-1]
	return f
}

// Top returns the kind of the innermost load.
func (s *Stack) Top() (Kind, bool) {
	if len(s.frames) == 0 {
		return 0, false
	}
	return s.frames[len(s.frames)-1].Kind, true
}

// Depth is the number of loads in progress.
func (s *Stack) Depth() int { return len(s.frames) }

// Frames returns a copy of the stack, outermost first.
func (s *Stack) Frames() []Frame { return append([]Frame(nil), s.frames...) }
