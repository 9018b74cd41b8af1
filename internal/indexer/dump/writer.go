// Package dump renders the index as its canonical text layout: one line per
// term in ascending order, the term left-justified to a fixed width and
// followed by one "<doc_id, term_frequency, pos1 pos2 ...>" block per
// posting in posting-store order.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/index"
)

// DefaultTermWidth is the column width terms are padded to.
const DefaultTermWidth = 20

// Walker yields terms in ascending order. *btree.Tree satisfies it.
type Walker interface {
	Walk(fn func(term string, postings index.View) bool)
}

// FormatLine renders one dump line without the trailing newline. Terms longer
// than width are written in full with no padding.
func FormatLine(term string, postings index.View, width int) string {
	var b strings.Builder
	b.WriteString(term)
	for pad := width - len(term); pad > 0; pad-- {
		b.WriteByte(' ')
	}
	postings.Each(func(p index.Posting) bool {
		b.WriteByte('<')
		b.WriteString(strconv.FormatUint(p.DocID, 10))
		b.WriteString(", ")
		b.WriteString(strconv.Itoa(p.Frequency))
		b.WriteString(", ")
		for i, pos := range p.Positions {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.Itoa(pos))
		}
		b.WriteByte('>')
		return true
	})
	return b.String()
}

// Lines returns the dump as a slice of lines.
func Lines(w Walker, width int) []string {
	var lines []string
	w.Walk(func(term string, postings index.View) bool {
		lines = append(lines, FormatLine(term, postings, width))
		return true
	})
	return lines
}

// Write streams the dump to out, one newline-terminated line per term, and
// returns the number of lines written.
func Write(out io.Writer, w Walker, width int) (int, error) {
	bw := bufio.NewWriter(out)
	var (
		n   int
		err error
	)
	w.Walk(func(term string, postings index.View) bool {
		if _, err = bw.WriteString(FormatLine(term, postings, width)); err != nil {
			return false
		}
		if err = bw.WriteByte('\n'); err != nil {
			return false
		}
		n++
		return true
	})
	if err != nil {
		return n, fmt.Errorf("writing dump line %d: %w", n+1, err)
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("flushing dump: %w", err)
	}
	return n, nil
}

// WriteFile atomically replaces path with the dump. It writes to a .tmp file
// first and renames on success.
func WriteFile(path string, w Walker, width int) (int, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("creating dump directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating temp dump file: %w", err)
	}
	defer f.Close()

	n, err := Write(f, w, width)
	if err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("syncing dump file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("renaming dump file: %w", err)
	}
	return n, nil
}
