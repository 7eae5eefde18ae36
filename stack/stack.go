package stack

import "container/list"

func New() *stack {
	return &stack{new(list.List)}
}

func (s *stack) Len() int {
	return s.l.Len()
}

func (s *stack) IsEmpty() bool {
	return s.l.Len() == 0
}

func (s *stack) Pop() interface{} {
	if e := s.l.Front(); e != nil {
		return s.l.Remove(e)
	}
	return nil
}

func (s *stack) Peek() interface{} {
	if e := s.l.Front(); e != nil {
		return e.Value
	}
	return nil
}

func (s *stack) Push(v interface{}) {
	s.l.PushFront(v)
}

func (s *stack) Drain() []interface{} {
	vs := make([]interface{}, 0, s.l.Len())
	for e := s.l.Back(); e != nil; e = s.l.Back() {
		vs = append(vs, s.l.Remove(e))
	}
	return vs
}
