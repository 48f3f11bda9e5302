package repair

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Source is the slice of a variant the ledger needs: a display name and the
// ability to write its current source somewhere.
type Source interface {
	ID() string
	PersistSource(path string) error
}

// Record describes one committed repair.
type Record struct {
	Index   int
	Variant string
	Dir     string
	Path    string
}

// Ledger owns the process-wide repair counter for one search run. Each
// confirmed repair gets the next repair<N> directory under the run's output
// root and a copy of the variant's source.
type Ledger struct {
	mu    sync.Mutex
	count int
	root  string
	file  string
}

// NewLedger builds a ledger rooted at outputRoot. The persisted file is
// named repair.<ext><suffix>; a leading dot on ext is tolerated.
func NewLedger(outputRoot, ext, suffix string) *Ledger {
	return &Ledger{
		root: outputRoot,
		file: "repair." + strings.TrimPrefix(ext, ".") + suffix,
	}
}

// Commit assigns the next repair number and persists the variant's source.
// The counter increment and directory creation happen under one lock, so
// two concurrent successes never share a repair<N> name.
func (l *Ledger) Commit(v Source) (*Record, error) {
	l.mu.Lock()
	l.count++
	n := l.count
	dir := filepath.Join(l.root, fmt.Sprintf("repair%d", n))
	mkErr := os.MkdirAll(dir, 0o755)
	l.mu.Unlock()
	if mkErr != nil {
		return nil, fmt.Errorf("creating repair dir: %w", mkErr)
	}

	log.Printf("repair found: %s (repair%d)", v.ID(), n)

	path := filepath.Join(dir, l.file)
	if err := v.PersistSource(path); err != nil {
		return nil, fmt.Errorf("persisting repair source: %w", err)
	}
	return &Record{Index: n, Variant: v.ID(), Dir: dir, Path: path}, nil
}

// Count reports how many repairs have been committed so far.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// FileName returns the artifact name used inside each repair directory.
func (l *Ledger) FileName() string { return l.file }
