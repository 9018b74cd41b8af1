package index

// Posting is one document's occurrence record for a term. Frequency always
// equals len(Positions); positions are 1-based and ascending.
type Posting struct {
	DocID     uint64 `json:"doc_id"`
	Frequency int    `json:"frequency"`
	Positions []int  `json:"positions"`
}

type PostingList []Posting

// DocIDs returns the document ids of the list in list order.
func (pl PostingList) DocIDs() []uint64 {
	ids := make([]uint64, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

// PostingStore holds the postings of a single term in first-insertion order.
// A document seen for the first time is appended at the tail; the store is
// never re-sorted.
type PostingStore struct {
	postings []Posting
}

// NewPostingStore returns a store holding one posting for docID.
func NewPostingStore(docID uint64, position int) *PostingStore {
	s := &PostingStore{postings: make([]Posting, 0, 1)}
	s.Add(docID, position)
	return s
}

// Add records an occurrence of the term at position in docID.
func (s *PostingStore) Add(docID uint64, position int) {
	for i := range s.postings {
		if s.postings[i].DocID == docID {
			s.postings[i].Frequency++
			s.postings[i].Positions = append(s.postings[i].Positions, position)
			return
		}
	}
	s.postings = append(s.postings, Posting{
		DocID:     docID,
		Frequency: 1,
		Positions: []int{position},
	})
}

// View returns a read-only handle on the store.
func (s *PostingStore) View() View {
	return View{s: s}
}

// View is a read-only handle on a PostingStore. The zero View is empty.
type View struct {
	s *PostingStore
}

// Len reports the number of postings, i.e. the document frequency.
func (v View) Len() int {
	if v.s == nil {
		return 0
	}
	return len(v.s.postings)
}

// Each calls fn for every posting in store order until fn returns false.
// fn must not retain or modify p.Positions.
func (v View) Each(fn func(p Posting) bool) {
	if v.s == nil {
		return
	}
	for _, p := range v.s.postings {
		if !fn(p) {
			return
		}
	}
}

// Postings returns a deep copy of the postings in store order.
func (v View) Postings() PostingList {
	out := make(PostingList, 0, v.Len())
	v.Each(func(p Posting) bool {
		positions := make([]int, len(p.Positions))
		copy(positions, p.Positions)
		out = append(out, Posting{DocID: p.DocID, Frequency: p.Frequency, Positions: positions})
		return true
	})
	return out
}

// DocIDs returns the document ids in store order.
func (v View) DocIDs() []uint64 {
	ids := make([]uint64, 0, v.Len())
	v.Each(func(p Posting) bool {
		ids = append(ids, p.DocID)
		return true
	})
	return ids
}

// Posting returns a copy of the posting for docID.
func (v View) Posting(docID uint64) (Posting, bool) {
	var (
		found Posting
		ok    bool
	)
	v.Each(func(p Posting) bool {
		if p.DocID != docID {
			return true
		}
		found = Posting{DocID: p.DocID, Frequency: p.Frequency, Positions: append([]int(nil), p.Positions...)}
		ok = true
		return false
	})
	return found, ok
}

// TotalFrequency sums the term frequency over all documents.
func (v View) TotalFrequency() int {
	total := 0
	v.Each(func(p Posting) bool {
		total += p.Frequency
		return true
	})
	return total
}
