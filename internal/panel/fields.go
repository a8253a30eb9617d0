package panel

import "sync"

// Fields keeps the last status snapshot rendered for each post.
type Fields struct {
	mu        sync.RWMutex
	byPost    map[string]map[string]string
	onReplace func(postID string, fields map[string]string)
}

// NewFields returns an empty store. onReplace, if set, receives a copy of
// every snapshot after it was stored.
func NewFields(onReplace func(postID string, fields map[string]string)) *Fields {
	return &Fields{byPost: make(map[string]map[string]string), onReplace: onReplace}
}

// Get returns a copy of the displayed fields of postID.
func (f *Fields) Get(postID string) (map[string]string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cur, ok := f.byPost[postID]
	if !ok {
		return nil, false
	}
	return copyFields(cur), true
}

// Replace swaps every displayed field of postID for snap at once. Keys
// absent from snap keep their previous value.
func (f *Fields) Replace(postID string, snap map[string]string) map[string]string {
	f.mu.Lock()
	next := copyFields(f.byPost[postID])
	if next == nil {
		next = make(map[string]string, len(snap))
	}
	for k, v := range snap {
		next[k] = v
	}
	f.byPost[postID] = next
	out := copyFields(next)
	f.mu.Unlock()

	if f.onReplace != nil {
		f.onReplace(postID, copyFields(out))
	}
	return out
}

func copyFields(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
