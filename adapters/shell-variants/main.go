// Command shell-variants is a sample candidate generator: it applies
// line-level mutations (delete, duplicate, swap) to a subject source file
// and writes one complete replacement file per variant into a candidates
// directory, ready for `mend run --candidates`.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	subject := flag.String("subject", "", "source file to mutate")
	out := flag.String("out", "candidates", "output directory for candidate files")
	count := flag.Int("count", 20, "number of candidates to generate")
	seed := flag.Int64("seed", 0, "RNG seed (0 seeds from the clock)")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: shell-variants -subject FILE [-out DIR] [-count N] [-seed N]")
		os.Exit(2)
	}
	if err := run(*subject, *out, *count, *seed); err != nil {
		log.Fatal(err)
	}
}

func run(subject, out string, count int, seed int64) error {
	data, err := os.ReadFile(subject)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	mutable := mutableLines(lines)
	if len(mutable) == 0 {
		return fmt.Errorf("%s has no mutable lines", subject)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	ext := filepath.Ext(subject)
	for i := 1; i <= count; i++ {
		op, mutated := mutate(rng, lines, mutable)
		path := filepath.Join(out, fmt.Sprintf("v%03d-%s%s", i, op, ext))
		if err := os.WriteFile(path, []byte(strings.Join(mutated, "\n")), 0o644); err != nil {
			return err
		}
	}
	fmt.Printf("Wrote %d candidates to %s (seed %d)\n", count, out, seed)
	return nil
}

// mutableLines lists the indexes eligible for mutation; blank lines are
// left alone so formatting noise never counts as a variant.
func mutableLines(lines []string) []int {
	var idx []int
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			idx = append(idx, i)
		}
	}
	return idx
}

// mutate applies one randomly chosen operator to a copy of lines and
// returns an operator tag (1-based line numbers) plus the mutated lines.
// The input slice is never modified.
func mutate(rng *rand.Rand, lines []string, mutable []int) (string, []string) {
	out := make([]string, len(lines))
	copy(out, lines)
	pick := func() int { return mutable[rng.Intn(len(mutable))] }
	switch rng.Intn(3) {
	case 0:
		i := pick()
		out = append(out[:i], out[i+1:]...)
		return fmt.Sprintf("del%d", i+1), out
	case 1:
		i, j := pick(), pick()
		rest := append([]string{lines[j]}, out[i+1:]...)
		out = append(out[:i+1], rest...)
		return fmt.Sprintf("dup%d-%d", j+1, i+1), out
	default:
		i, j := pick(), pick()
		out[i], out[j] = out[j], out[i]
		return fmt.Sprintf("swap%d-%d", i+1, j+1), out
	}
}
