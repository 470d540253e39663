package bash

// boolStack is one of the generator's four context stacks (spec §4.9):
// push-true/push-false/pop, read via top(). An empty stack reads as
// false; Generate pushes a starting value onto the stacks that begin on.
type boolStack struct {
	vals []bool
}

func (s *boolStack) top() bool {
	if len(s.vals) == 0 {
		return false
	}
	return s.vals[len(s.vals)-1]
}

func (s *boolStack) push(v bool) { s.vals = append(s.vals, v) }
func (s *boolStack) enable()     { s.push(true) }
func (s *boolStack) disable()    { s.push(false) }

// reset pops the top of the stack, restoring whatever scope pushed
// before the most recent enable/disable.
func (s *boolStack) reset() {
	if len(s.vals) > 0 {
		s.vals = s.vals[:len(s.vals)-1]
	}
}
