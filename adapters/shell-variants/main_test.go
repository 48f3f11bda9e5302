package main

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestMutableLinesSkipsBlanks(t *testing.T) {
	lines := []string{"int main() {", "", "  return 0;", "}", ""}
	got := mutableLines(lines)
	want := []int{0, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("mutable lines: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mutable lines: got %v, want %v", got, want)
			break
		}
	}
}

func TestMutateOperators(t *testing.T) {
	lines := []string{"a", "b", "c", "d", ""}
	mutable := mutableLines(lines)
	rng := rand.New(rand.NewSource(1))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		op, out := mutate(rng, lines, mutable)
		switch {
		case strings.HasPrefix(op, "del"):
			seen["del"] = true
			if len(out) != len(lines)-1 {
				t.Errorf("%s: got %d lines, want %d", op, len(out), len(lines)-1)
			}
		case strings.HasPrefix(op, "dup"):
			seen["dup"] = true
			if len(out) != len(lines)+1 {
				t.Errorf("%s: got %d lines, want %d", op, len(out), len(lines)+1)
			}
		case strings.HasPrefix(op, "swap"):
			seen["swap"] = true
			if len(out) != len(lines) {
				t.Errorf("%s: got %d lines, want %d", op, len(out), len(lines))
			}
			a, b := append([]string(nil), lines...), append([]string(nil), out...)
			sort.Strings(a)
			sort.Strings(b)
			if strings.Join(a, "\n") != strings.Join(b, "\n") {
				t.Errorf("%s changed line content: %v", op, out)
			}
		default:
			t.Fatalf("unknown operator tag %q", op)
		}
		if strings.Join(lines, "\n") != "a\nb\nc\nd\n" {
			t.Fatal("mutate modified its input")
		}
	}
	for _, op := range []string{"del", "dup", "swap"} {
		if !seen[op] {
			t.Errorf("operator %s never drawn in 50 rounds", op)
		}
	}
}

func TestRunIsDeterministicWithSeed(t *testing.T) {
	subject := filepath.Join(t.TempDir(), "prog.c")
	src := "int max(int a, int b) {\n  if (a > b) return a;\n  return b;\n}\n"
	if err := os.WriteFile(subject, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	read := func(dir string) map[string]string {
		t.Helper()
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		files := map[string]string{}
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				t.Fatal(err)
			}
			files[e.Name()] = string(data)
		}
		return files
	}

	out1, out2 := t.TempDir(), t.TempDir()
	if err := run(subject, out1, 7, 42); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if err := run(subject, out2, 7, 42); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	files1, files2 := read(out1), read(out2)
	if len(files1) != 7 {
		t.Fatalf("got %d candidates, want 7", len(files1))
	}
	for name, content := range files1 {
		if filepath.Ext(name) != ".c" {
			t.Errorf("candidate %s does not keep the subject extension", name)
		}
		if !strings.HasPrefix(name, "v00") {
			t.Errorf("candidate %s missing sequence prefix", name)
		}
		if files2[name] != content {
			t.Errorf("same seed produced different content for %s", name)
		}
	}
}

func TestRunRejectsEmptySubject(t *testing.T) {
	subject := filepath.Join(t.TempDir(), "empty.c")
	if err := os.WriteFile(subject, []byte("\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run(subject, t.TempDir(), 3, 1); err == nil {
		t.Error("expected error for a subject with no mutable lines")
	}
}
