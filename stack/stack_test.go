package stack

import "testing"

func TestPushPop(t *testing.T) {
	s := New()
	if !s.IsEmpty() || s.Pop() != nil || s.Peek() != nil {
		t.Fatal("new stack is not empty")
	}
	for i := 1; i <= 3; i++ {
		s.Push(i)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if v := s.Peek(); v != 3 {
		t.Errorf("Peek() = %v, want 3", v)
	}
	for want := 3; want >= 1; want-- {
		if v := s.Pop(); v != want {
			t.Errorf("Pop() = %v, want %d", v, want)
		}
	}
	if !s.IsEmpty() {
		t.Error("stack not empty after popping everything")
	}
}

func TestDrainKeepsPushOrder(t *testing.T) {
	s := New()
	for _, v := range []string{"a", "b", "c"} {
		s.Push(v)
	}
	vs := s.Drain()
	if len(vs) != 3 || vs[0] != "a" || vs[1] != "b" || vs[2] != "c" {
		t.Errorf("Drain() = %v, want [a b c]", vs)
	}
	if !s.IsEmpty() {
		t.Error("stack not empty after Drain")
	}
}
