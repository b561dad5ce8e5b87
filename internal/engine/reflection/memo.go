package reflection

// memoized returns the cached value of (id, field) or computes it. A value
// is cached only when compute reports its dependency closure complete;
// otherwise it is recomputed on every call.
func memoized[T any](r *Registry, id uint64, field Field, compute func() (T, bool)) T {
	if r == nil {
		v, _ := compute()
		return v
	}
	key := memoKey{id: id, field: field}
	r.memoMu.Lock()
	if v, ok := r.memo[key]; ok {
		r.memoMu.Unlock()
		return v.(T)
	}
	r.memoMu.Unlock()

	v, complete := compute()
	if complete {
		r.memoMu.Lock()
		r.memo[key] = v
		r.memoMu.Unlock()
	}
	return v
}

// enter marks (id, field) as being computed. It reports false when the
// computation is already on the stack, which means the value depends on
// itself.
func (r *Registry) enter(id uint64, field Field) bool {
	if r == nil {
		return true
	}
	key := memoKey{id: id, field: field}
	r.memoMu.Lock()
	defer r.memoMu.Unlock()
	if r.pending[key] {
		return false
	}
	r.pending[key] = true
	return true
}

func (r *Registry) leave(id uint64, field Field) {
	if r == nil {
		return
	}
	r.memoMu.Lock()
	delete(r.pending, memoKey{id: id, field: field})
	r.memoMu.Unlock()
}
