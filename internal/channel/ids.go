package channel

// IDAllocator hands out strictly increasing source ids.
// It is not safe for concurrent use; a Channel only calls it from its command executor.
type IDAllocator struct {
	last SourceID
}

// NewIDAllocator creates an allocator whose first id is 1
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns an id greater than every id previously returned
func (a *IDAllocator) Next() SourceID {
	a.last++
	return a.last
}

// Last returns the most recently allocated id, or InvalidSourceID
func (a *IDAllocator) Last() SourceID {
	return a.last
}
