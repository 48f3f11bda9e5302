package repair_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/singlefault/mend/internal/repair"
)

type fakeSource struct {
	name    string
	content string
}

func (s *fakeSource) ID() string { return s.name }

func (s *fakeSource) PersistSource(path string) error {
	return os.WriteFile(path, []byte(s.content), 0o644)
}

func TestCommitNumbersDirsSequentially(t *testing.T) {
	root := t.TempDir()
	ledger := repair.NewLedger(root, "c", "")

	first, err := ledger.Commit(&fakeSource{name: "cand-a", content: "int main() {}"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if first.Index != 1 {
		t.Errorf("first index: got %d, want 1", first.Index)
	}
	if first.Dir != filepath.Join(root, "repair1") {
		t.Errorf("first dir: got %s", first.Dir)
	}
	data, err := os.ReadFile(filepath.Join(root, "repair1", "repair.c"))
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != "int main() {}" {
		t.Errorf("artifact content: got %q", data)
	}

	second, err := ledger.Commit(&fakeSource{name: "cand-b", content: "x"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if second.Index != 2 || second.Dir != filepath.Join(root, "repair2") {
		t.Errorf("second record: got index %d dir %s", second.Index, second.Dir)
	}
	if ledger.Count() != 2 {
		t.Errorf("Count: got %d, want 2", ledger.Count())
	}
}

func TestCommitConcurrentDistinctDirs(t *testing.T) {
	root := t.TempDir()
	ledger := repair.NewLedger(root, "c", "")

	const workers = 8
	records := make([]*repair.Record, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := ledger.Commit(&fakeSource{
				name:    fmt.Sprintf("cand-%d", i),
				content: fmt.Sprintf("source %d", i),
			})
			if err != nil {
				t.Errorf("Commit %d: %v", i, err)
				return
			}
			records[i] = rec
		}(i)
	}
	wg.Wait()

	seen := map[int]string{}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if prev, dup := seen[rec.Index]; dup {
			t.Errorf("index %d assigned to both %s and %s", rec.Index, prev, rec.Variant)
		}
		seen[rec.Index] = rec.Variant
		if rec.Index < 1 || rec.Index > workers {
			t.Errorf("index %d outside [1,%d]", rec.Index, workers)
		}
		data, err := os.ReadFile(rec.Path)
		if err != nil {
			t.Errorf("reading %s: %v", rec.Path, err)
			continue
		}
		want := "source " + rec.Variant[len("cand-"):]
		if string(data) != want {
			t.Errorf("artifact for %s: got %q, want %q", rec.Variant, data, want)
		}
	}
	if len(seen) != workers {
		t.Errorf("expected %d distinct indices, got %d", workers, len(seen))
	}
}

func TestFileName(t *testing.T) {
	if got := repair.NewLedger("", ".c", "").FileName(); got != "repair.c" {
		t.Errorf("FileName: got %q, want repair.c", got)
	}
	if got := repair.NewLedger("", "py", "-min").FileName(); got != "repair.py-min" {
		t.Errorf("FileName: got %q, want repair.py-min", got)
	}
}

func TestFoundUnwrapsAsItself(t *testing.T) {
	var err error = &repair.Found{Record: &repair.Record{Index: 1, Variant: "cand-a"}}
	wrapped := fmt.Errorf("evaluating cand-a: %w", err)

	var found *repair.Found
	if !errors.As(wrapped, &found) {
		t.Fatal("Found not recoverable through wrapping")
	}
	if found.Record.Variant != "cand-a" {
		t.Errorf("variant: got %q, want cand-a", found.Record.Variant)
	}
}
