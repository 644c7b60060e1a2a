package service

import "sync"

// InvalidationFunc receives the entity name and the ids whose mirror rows
// changed. Callbacks run synchronously on the reconciler goroutine and must
// not block.
type InvalidationFunc func(entity string, ids []string)

// Invalidation fans mirror-change notifications out to registered listeners
// so embedding applications can refresh views without polling.
type Invalidation struct {
	mu   sync.RWMutex
	subs []InvalidationFunc
}

func NewInvalidation() *Invalidation {
	return &Invalidation{}
}

func (i *Invalidation) Register(fn InvalidationFunc) {
	if fn == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.subs = append(i.subs, fn)
}

func (i *Invalidation) Notify(entity string, ids ...string) {
	if len(ids) == 0 {
		return
	}

	i.mu.RLock()
	subs := make([]InvalidationFunc, len(i.subs))
	copy(subs, i.subs)
	i.mu.RUnlock()

	for _, fn := range subs {
		fn(entity, ids)
	}
}
