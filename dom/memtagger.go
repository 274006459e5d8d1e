package dom

import "sync"

// MemTagger keeps tags in memory, keyed by Node.Key. It is useful when the
// tree cannot carry extra attributes, and as a test double.
type MemTagger struct {
	mu    sync.Mutex
	nodes map[string]Node
	order []string
}

// NewMemTagger returns an empty MemTagger.
func NewMemTagger() *MemTagger {
	return &MemTagger{nodes: make(map[string]Node)}
}

func (t *MemTagger) Tagged(n Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.nodes[n.Key()]
	return ok
}

func (t *MemTagger) Tag(n Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := n.Key()
	if _, ok := t.nodes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.nodes[k] = n
	return nil
}

func (t *MemTagger) Untag(n Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := n.Key()
	if _, ok := t.nodes[k]; !ok {
		return nil
	}
	delete(t.nodes, k)
	for i, o := range t.order {
		if o == k {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// TaggedNodes returns tagged nodes in tagging order.
func (t *MemTagger) TaggedNodes() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Node, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.nodes[k])
	}
	return out
}

// Len returns the number of tagged nodes.
func (t *MemTagger) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}
