package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// ResolveRunDir maps a run name to its directory. "latest" or the empty
// string follow the latest symlink; a bare run stamp is looked up under
// runs/; anything else is taken as a path.
func ResolveRunDir(baseDir, name string) (string, error) {
	path := name
	switch {
	case name == "" || name == "latest":
		path = filepath.Join(baseDir, "latest")
	case !strings.ContainsRune(name, os.PathSeparator):
		stamped := filepath.Join(baseDir, "runs", name)
		if _, err := os.Stat(stamped); err == nil {
			path = stamped
		}
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("resolving run dir %q: %w", name, err)
	}
	return resolved, nil
}

func WriteRunMeta(runDir string, meta *RunMeta) error {
	return writeJSON(filepath.Join(runDir, "run.json"), meta)
}

func ReadRunMeta(runDir string) (*RunMeta, error) {
	var meta RunMeta
	if err := readJSON(filepath.Join(runDir, "run.json"), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func WriteRepairMeta(repairDir string, meta *RepairMeta) error {
	return writeJSON(filepath.Join(repairDir, "meta.json"), meta)
}

func ReadRepairMeta(repairDir string) (*RepairMeta, error) {
	var meta RepairMeta
	if err := readJSON(filepath.Join(repairDir, "meta.json"), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// RepairDirs lists the repair directories under runDir in index order.
func RepairDirs(runDir string) ([]string, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, fmt.Errorf("reading run dir: %w", err)
	}
	type indexed struct {
		index int
		path  string
	}
	var dirs []indexed
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(entry.Name(), "repair%d", &n); err != nil {
			continue
		}
		dirs = append(dirs, indexed{n, filepath.Join(runDir, entry.Name())})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].index < dirs[j].index })
	paths := make([]string, len(dirs))
	for i, d := range dirs {
		paths[i] = d.path
	}
	return paths, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", filepath.Base(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
