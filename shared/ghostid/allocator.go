package ghostid

// Allocator hands out runtime ghost IDs. Released IDs go to a free list and
// are reused before new indices are minted. It is not safe for concurrent use;
// the server mutates it from its single-writer spawn step.
type Allocator struct {
	next uint32
	free []ID
	live map[ID]struct{}
}

func NewAllocator() *Allocator {
	return &Allocator{
		next: 1,
		live: make(map[ID]struct{}),
	}
}

// Allocate returns an unused runtime ID.
func (a *Allocator) Allocate() (ID, error) {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.live[id] = struct{}{}
		return id, nil
	}
	if a.next > MaxIndex {
		return Unassigned, ErrRangeExhausted
	}
	id := ID(a.next)
	a.next++
	a.live[id] = struct{}{}
	return id, nil
}

// Release returns id to the free list. Releasing an unknown or prespawned ID
// is a no-op and reports false.
func (a *Allocator) Release(id ID) bool {
	if !id.IsRuntime() {
		return false
	}
	if _, ok := a.live[id]; !ok {
		return false
	}
	delete(a.live, id)
	a.free = append(a.free, id)
	return true
}

// Live reports the number of allocated IDs.
func (a *Allocator) Live() int {
	return len(a.live)
}
