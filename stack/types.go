package stack

import "container/list"

// Stack collects search matches. Push and Pop work at the top; Drain empties
// it from the bottom so items come back in the order they were pushed.
type Stack interface {
	Len() int
	IsEmpty() bool
	Push(interface{})
	Pop() interface{}
	Peek() interface{}
	Drain() []interface{}
}

type stack struct {
	l *list.List
}
