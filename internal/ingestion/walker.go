package ingestion

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
)

// DocIDFromName parses the id from a file name such as "12.txt": the part
// before the first dot must be a decimal number.
func DocIDFromName(name string) (uint64, error) {
	stem, _, _ := strings.Cut(name, ".")
	id, err := strconv.ParseUint(stem, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("file %q has no numeric document id: %w", name, apperrors.ErrInvalidInput)
	}
	return id, nil
}

// Walk calls fn for every regular file under root, or for root itself when
// it is a file. Files whose name contains any of skip are ignored. A file
// without a numeric id aborts the walk with an error; so does any error
// returned by fn.
func Walk(root string, skip []string, fn func(Document) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("reading corpus path: %w", err)
	}
	if !info.IsDir() {
		if skipped(info.Name(), skip) {
			return fmt.Errorf("corpus file %q is excluded: %w", root, apperrors.ErrInvalidInput)
		}
		return visit(root, info.Name(), fn)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || skipped(d.Name(), skip) {
			return nil
		}
		return visit(path, d.Name(), fn)
	})
}

func visit(path, name string, fn func(Document) error) error {
	id, err := DocIDFromName(name)
	if err != nil {
		return err
	}
	return fn(Document{ID: id, Name: name, Path: path})
}

func skipped(name string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}
