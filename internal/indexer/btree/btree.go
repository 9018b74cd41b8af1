// Package btree implements the term dictionary of the inverted index as an
// M-ary B-tree. Every entry maps a term to its posting store; entries live in
// internal nodes as well as leaves, so lookups may stop above the leaf level.
//
// Nodes are kept in an arena slice and refer to each other by index. The
// tree only grows: there is no deletion, and height increases only when the
// root splits.
package btree

import (
	"fmt"
	"iter"
	"slices"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
)

// DefaultOrder is the branching factor used when none is configured.
const DefaultOrder = 71

type nodeID int32

const noNode nodeID = -1

type entry struct {
	term     string
	postings *index.PostingStore
}

// node is a leaf iff it has no children. Internal nodes always carry
// len(entries)+1 children.
type node struct {
	entries  []entry
	children []nodeID
	parent   nodeID
}

func (n *node) leaf() bool {
	return len(n.children) == 0
}

// find returns the slot of the first entry >= term and whether it matches.
func (n *node) find(term string) (int, bool) {
	i := sort.Search(len(n.entries), func(i int) bool {
		return n.entries[i].term >= term
	})
	return i, i < len(n.entries) && n.entries[i].term == term
}

// Tree is not safe for concurrent mutation. Once the writer is done, any
// number of readers may call Search and Walk concurrently.
type Tree struct {
	order      int
	nodes      []node
	root       nodeID
	terms      int
	height     int
	splits     int
	rootSplits int
}

// Stats summarises the shape of a tree.
type Stats struct {
	Order      int `json:"order"`
	Terms      int `json:"terms"`
	Nodes      int `json:"nodes"`
	Height     int `json:"height"`
	Splits     int `json:"splits"`
	RootSplits int `json:"root_splits"`
}

// New returns an empty tree of the given order. The order must be odd and at
// least 3 so that a split leaves both halves with the same number of entries.
func New(order int) (*Tree, error) {
	if order < 3 || order%2 == 0 {
		return nil, fmt.Errorf("order %d must be odd and >= 3: %w", order, apperrors.ErrInvalidOrder)
	}
	t := &Tree{order: order, height: 1}
	t.root = t.alloc(noNode)
	return t, nil
}

func (t *Tree) alloc(parent nodeID) nodeID {
	t.nodes = append(t.nodes, node{
		entries: make([]entry, 0, t.order-1),
		parent:  parent,
	})
	return nodeID(len(t.nodes) - 1)
}

// locate descends from the root. It stops at the first node holding term, or
// at the leaf where term would be inserted.
func (t *Tree) locate(term string) (nodeID, int, bool) {
	id := t.root
	for {
		n := &t.nodes[id]
		i, found := n.find(term)
		if found || n.leaf() {
			return id, i, found
		}
		id = n.children[i]
	}
}

// Insert records an occurrence of term at position in docID. An existing
// term only has its postings updated; a new term is added to a leaf and may
// split nodes up to the root.
func (t *Tree) Insert(term string, docID uint64, position int) {
	id, i, found := t.locate(term)
	if found {
		t.nodes[id].entries[i].postings.Add(docID, position)
		return
	}
	t.insertEntry(id, entry{
		term:     term,
		postings: index.NewPostingStore(docID, position),
	}, noNode)
	t.terms++
}

// insertEntry places e into node id with right as the child immediately to
// its right. A full node is split around its median, which is then inserted
// into the parent together with the new sibling.
func (t *Tree) insertEntry(id nodeID, e entry, right nodeID) {
	for {
		n := &t.nodes[id]
		i, _ := n.find(e.term)

		if len(n.entries) < t.order-1 {
			n.entries = slices.Insert(n.entries, i, e)
			if right != noNode {
				n.children = slices.Insert(n.children, i+1, right)
				t.nodes[right].parent = id
			}
			return
		}

		entries := make([]entry, 0, t.order)
		entries = append(entries, n.entries[:i]...)
		entries = append(entries, e)
		entries = append(entries, n.entries[i:]...)

		var children []nodeID
		if !n.leaf() {
			children = make([]nodeID, 0, t.order+1)
			children = append(children, n.children[:i+1]...)
			children = append(children, right)
			children = append(children, n.children[i+1:]...)
		}

		mid := len(entries) / 2
		median := entries[mid]
		parent := n.parent

		// alloc may move the arena; n is stale from here on.
		sib := t.alloc(parent)
		left := &t.nodes[id]
		sibling := &t.nodes[sib]

		left.entries = append(left.entries[:0], entries[:mid]...)
		sibling.entries = append(sibling.entries, entries[mid+1:]...)
		if children != nil {
			left.children = append(left.children[:0], children[:mid+1]...)
			sibling.children = append(make([]nodeID, 0, t.order), children[mid+1:]...)
			for _, c := range left.children {
				t.nodes[c].parent = id
			}
			for _, c := range sibling.children {
				t.nodes[c].parent = sib
			}
		}
		t.splits++

		if parent == noNode {
			root := t.alloc(noNode)
			r := &t.nodes[root]
			r.entries = append(r.entries, median)
			r.children = append(make([]nodeID, 0, t.order), id, sib)
			t.nodes[id].parent = root
			t.nodes[sib].parent = root
			t.root = root
			t.height++
			t.rootSplits++
			return
		}

		id, e, right = parent, median, sib
	}
}

// Search returns the postings of term. Matches may be found at any depth.
func (t *Tree) Search(term string) (index.View, bool) {
	id, i, found := t.locate(term)
	if !found {
		return index.View{}, false
	}
	return t.nodes[id].entries[i].postings.View(), true
}

// Walk visits every term in ascending order until fn returns false.
func (t *Tree) Walk(fn func(term string, postings index.View) bool) {
	t.walk(t.root, fn)
}

func (t *Tree) walk(id nodeID, fn func(string, index.View) bool) bool {
	n := &t.nodes[id]
	for i, e := range n.entries {
		if !n.leaf() && !t.walk(n.children[i], fn) {
			return false
		}
		if !fn(e.term, e.postings.View()) {
			return false
		}
	}
	if !n.leaf() {
		return t.walk(n.children[len(n.entries)], fn)
	}
	return true
}

// All returns an iterator over terms in ascending order.
func (t *Tree) All() iter.Seq2[string, index.View] {
	return func(yield func(string, index.View) bool) {
		t.Walk(yield)
	}
}

// Len reports the number of distinct terms.
func (t *Tree) Len() int { return t.terms }

// Height reports the number of levels; an empty tree has height 1.
func (t *Tree) Height() int { return t.height }

func (t *Tree) Order() int { return t.order }

func (t *Tree) Stats() Stats {
	return Stats{
		Order:      t.order,
		Terms:      t.terms,
		Nodes:      len(t.nodes),
		Height:     t.height,
		Splits:     t.splits,
		RootSplits: t.rootSplits,
	}
}
