package shell

import "github.com/edwingeng/deque"

// DirStack is the pushd/popd directory stack. The front of the deque is the
// top of the stack and mirrors the shell's working directory.
type DirStack struct {
	dirs deque.Deque
}

// NewDirStack creates a stack holding only cwd.
func NewDirStack(cwd string) *DirStack {
	ds := &DirStack{dirs: deque.NewDeque()}
	ds.dirs.PushFront(cwd)
	return ds
}

// Push adds dir to the top of the stack.
func (ds *DirStack) Push(dir string) {
	ds.dirs.PushFront(dir)
}

// Pop removes the top of the stack. The last entry is the working directory
// and is never removed.
func (ds *DirStack) Pop() (string, bool) {
	if ds.dirs.Len() <= 1 {
		return "", false
	}
	return ds.dirs.PopFront().(string), true
}

// Top returns the directory on top of the stack.
func (ds *DirStack) Top() string {
	return ds.dirs.Front().(string)
}

// ReplaceTop swaps the top of the stack for dir, cd uses it so the stack
// keeps tracking the working directory.
func (ds *DirStack) ReplaceTop(dir string) {
	ds.dirs.PopFront()
	ds.dirs.PushFront(dir)
}

// Len returns the number of entries.
func (ds *DirStack) Len() int {
	return ds.dirs.Len()
}

// Paths returns the stack, top first.
func (ds *DirStack) Paths() []string {
	out := make([]string, 0, ds.dirs.Len())
	for i := 0; i < ds.dirs.Len(); i++ {
		out = append(out, ds.dirs.Peek(i).(string))
	}
	return out
}

// Clone returns an independent copy of the stack.
func (ds *DirStack) Clone() *DirStack {
	clone := &DirStack{dirs: deque.NewDeque()}
	for _, dir := range ds.Paths() {
		clone.dirs.PushBack(dir)
	}
	return clone
}
