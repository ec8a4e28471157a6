package vm

// ThreadList is an append-only pool of Threads. Its defining property is
// that appending during iteration is visible to an iterator already in
// flight: the VM relies on this so that a FORK discovered mid-frame is
// walked in the same frame as the thread that spawned it. Backed by a
// plain slice (stable under append because callers only ever grow it via
// Append, never reslice out from under an in-progress iteration), it is
// index-based rather than iterator-based for exactly that reason.
type ThreadList struct {
	threads []Thread
}

// NewThreadList returns a ThreadList pre-sized to cap threads, the upper
// bound on simultaneously-live threads for a program of that many
// instructions (each instruction can be at most one thread's PC after
// check-bit dedup).
func NewThreadList(cap int) *ThreadList {
	return &ThreadList{threads: make([]Thread, 0, cap)}
}

// Len returns the number of threads currently in the list.
func (l *ThreadList) Len() int {
	return len(l.threads)
}

// At returns a pointer to the thread at index i, valid until the next
// Append (which may reallocate the backing array).
func (l *ThreadList) At(i int) *Thread {
	return &l.threads[i]
}

// Append adds t to the end of the list and returns its index.
func (l *ThreadList) Append(t Thread) int {
	l.threads = append(l.threads, t)
	return len(l.threads) - 1
}

// Reset empties the list without releasing its backing array.
func (l *ThreadList) Reset() {
	l.threads = l.threads[:0]
}

// Swap exchanges the contents of l and other in O(1).
func (l *ThreadList) Swap(other *ThreadList) {
	l.threads, other.threads = other.threads, l.threads
}
