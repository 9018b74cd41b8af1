package btree

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
)

// Validate walks the whole tree and checks every structural invariant:
// key order and separator bounds, node occupancy, child and parent links,
// equal leaf depth, and posting consistency. It is a development assertion;
// a correct tree never fails it.
func (t *Tree) Validate() error {
	v := validator{t: t, minEntries: (t.order+1)/2 - 1, leafDepth: -1}
	if err := v.check(t.root, noNode, 0, nil, nil); err != nil {
		return err
	}
	if v.terms != t.terms {
		return v.fail("term count is %d, tree reports %d", v.terms, t.terms)
	}
	if v.leafDepth+1 != t.height {
		return v.fail("leaves at depth %d, tree reports height %d", v.leafDepth, t.height)
	}
	return nil
}

type validator struct {
	t          *Tree
	minEntries int
	leafDepth  int
	terms      int
}

func (v *validator) fail(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), apperrors.ErrStructuralInvariant)
}

func (v *validator) check(id, parent nodeID, depth int, lo, hi *string) error {
	n := &v.t.nodes[id]
	if n.parent != parent {
		return v.fail("node %d has parent %d, expected %d", id, n.parent, parent)
	}
	if len(n.entries) > v.t.order-1 {
		return v.fail("node %d holds %d entries, max %d", id, len(n.entries), v.t.order-1)
	}
	if id != v.t.root && len(n.entries) < v.minEntries {
		return v.fail("node %d holds %d entries, min %d", id, len(n.entries), v.minEntries)
	}
	if id == v.t.root && len(n.entries) == 0 && (!n.leaf() || v.t.terms != 0) {
		return v.fail("empty root in a non-empty tree")
	}
	for i, e := range n.entries {
		if i > 0 && n.entries[i-1].term >= e.term {
			return v.fail("node %d keys out of order: %q >= %q", id, n.entries[i-1].term, e.term)
		}
		if lo != nil && e.term <= *lo {
			return v.fail("node %d key %q not above separator %q", id, e.term, *lo)
		}
		if hi != nil && e.term >= *hi {
			return v.fail("node %d key %q not below separator %q", id, e.term, *hi)
		}
		if err := v.checkPostings(e.term, e.postings.View()); err != nil {
			return err
		}
		v.terms++
	}

	if n.leaf() {
		if v.leafDepth == -1 {
			v.leafDepth = depth
		} else if v.leafDepth != depth {
			return v.fail("leaf %d at depth %d, other leaves at depth %d", id, depth, v.leafDepth)
		}
		return nil
	}

	if len(n.children) != len(n.entries)+1 {
		return v.fail("node %d has %d children for %d entries", id, len(n.children), len(n.entries))
	}
	for i, c := range n.children {
		childLo, childHi := lo, hi
		if i > 0 {
			childLo = &n.entries[i-1].term
		}
		if i < len(n.entries) {
			childHi = &n.entries[i].term
		}
		if err := v.check(c, id, depth+1, childLo, childHi); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) checkPostings(term string, postings index.View) error {
	if postings.Len() == 0 {
		return v.fail("term %q has no postings", term)
	}
	var err error
	seen := make(map[uint64]struct{}, postings.Len())
	postings.Each(func(p index.Posting) bool {
		if _, dup := seen[p.DocID]; dup {
			err = v.fail("term %q has two postings for document %d", term, p.DocID)
			return false
		}
		seen[p.DocID] = struct{}{}
		if p.Frequency != len(p.Positions) {
			err = v.fail("term %q doc %d frequency %d != %d positions", term, p.DocID, p.Frequency, len(p.Positions))
			return false
		}
		for i := 1; i < len(p.Positions); i++ {
			if p.Positions[i] <= p.Positions[i-1] {
				err = v.fail("term %q doc %d positions not increasing", term, p.DocID)
				return false
			}
		}
		return true
	})
	return err
}
