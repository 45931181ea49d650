package ecs

// EntityID is a process-unique handle. IDs are handed out in increasing
// order and never reused, so ID order doubles as creation order.
// Zero is reserved for "no entity".
type EntityID uint64

func (id EntityID) IsZero() bool { return id == 0 }

// Allocator hands out monotonically increasing entity IDs.
// The counter is part of the saved world, so a restored world continues
// exactly where the original stopped.
type Allocator struct {
	Next EntityID `json:"next"`
}

func NewAllocator() Allocator {
	return Allocator{Next: 1}
}

func (a *Allocator) Create() EntityID {
	if a.Next == 0 {
		a.Next = 1
	}
	id := a.Next
	a.Next++
	return id
}

// Issued reports whether id was ever handed out by this allocator.
func (a *Allocator) Issued(id EntityID) bool {
	return id != 0 && id < a.Next
}
