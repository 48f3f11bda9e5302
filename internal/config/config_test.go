package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/singlefault/mend/internal/config"
)

func TestLoadMinimal(t *testing.T) {
	cfg, err := config.Load("../../testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Suite.PosCount != 5 || cfg.Suite.NegCount != 1 {
		t.Errorf("suite counts: got %d/%d, want 5/1", cfg.Suite.PosCount, cfg.Suite.NegCount)
	}
	if cfg.Fitness.Strategy != "weighted" {
		t.Errorf("default strategy: got %q, want weighted", cfg.Fitness.Strategy)
	}
	if cfg.Fitness.NegativeWeight != 2.0 {
		t.Errorf("default negative_weight: got %g, want 2.0", cfg.Fitness.NegativeWeight)
	}
	if cfg.Fitness.SampleFraction != 1.0 {
		t.Errorf("default sample_fraction: got %g, want 1.0", cfg.Fitness.SampleFraction)
	}
	if cfg.Search.Parallel != 1 {
		t.Errorf("default parallel: got %d, want 1", cfg.Search.Parallel)
	}
	if cfg.Suite.TimeoutSeconds != 60 {
		t.Errorf("default timeout_seconds: got %d, want 60", cfg.Suite.TimeoutSeconds)
	}
	if cfg.Results.Dir != "./results" {
		t.Errorf("default results dir: got %q, want ./results", cfg.Results.Dir)
	}
	if cfg.Results.Ext != "c" {
		t.Errorf("ext derived from target_file: got %q, want c", cfg.Results.Ext)
	}
}

func TestLoadFull(t *testing.T) {
	cfg, err := config.Load("../../testdata/full.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Subject.Repo == "" || cfg.Subject.Tag != "v1.0" {
		t.Errorf("subject repo/tag: got %q/%q", cfg.Subject.Repo, cfg.Subject.Tag)
	}
	if cfg.Suite.ProbeCmd == "" {
		t.Error("expected probe_cmd to be set")
	}
	if cfg.Fitness.SampleFraction != 0.4 {
		t.Errorf("sample_fraction: got %g, want 0.4", cfg.Fitness.SampleFraction)
	}
	if cfg.Fitness.Seed != 42 {
		t.Errorf("seed: got %d, want 42", cfg.Fitness.Seed)
	}
	if cfg.Search.Parallel != 4 {
		t.Errorf("parallel: got %d, want 4", cfg.Search.Parallel)
	}
	if !cfg.Sandbox.Enabled || cfg.Sandbox.Image != "gcc:13" {
		t.Errorf("sandbox: got %+v", cfg.Sandbox)
	}
	if cfg.Results.Suffix != "-median" {
		t.Errorf("suffix: got %q, want -median", cfg.Results.Suffix)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load("nonexistent.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := config.Load("../../testdata/invalid.yaml")
	if err == nil {
		t.Error("expected error for invalid config")
	}
}

func loadString(t *testing.T, content string) error {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mend.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := config.Load(path)
	return err
}

func TestValidationRules(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			"graded mode needs negatives",
			"suite: {pos_count: 3, neg_count: 0, test_cmd: t}\nsubject: {dir: ./s, target_file: a.c}\n",
			true,
		},
		{
			"graded mode needs positives",
			"suite: {pos_count: 0, neg_count: 1, test_cmd: t}\nsubject: {dir: ./s, target_file: a.c}\n",
			true,
		},
		{
			"single mode allows empty suite counts",
			"suite: {test_cmd: t}\nsubject: {dir: ./s, target_file: a.c}\nfitness: {single_fitness: true}\n",
			false,
		},
		{
			"dir and repo are exclusive",
			"suite: {pos_count: 1, neg_count: 1, test_cmd: t}\nsubject: {dir: ./s, repo: r, tag: v1, target_file: a.c}\n",
			true,
		},
		{
			"repo needs tag",
			"suite: {pos_count: 1, neg_count: 1, test_cmd: t}\nsubject: {repo: r, target_file: a.c}\n",
			true,
		},
		{
			"missing subject",
			"suite: {pos_count: 1, neg_count: 1, test_cmd: t}\nsubject: {target_file: a.c}\n",
			true,
		},
		{
			"sandbox needs image",
			"suite: {pos_count: 1, neg_count: 1, test_cmd: t}\nsubject: {dir: ./s, target_file: a.c}\nsandbox: {enabled: true}\n",
			true,
		},
		{
			"unknown strategy",
			"suite: {pos_count: 1, neg_count: 1, test_cmd: t}\nsubject: {dir: ./s, target_file: a.c}\nfitness: {strategy: genetic}\n",
			true,
		},
		{
			"sample fraction above one",
			"suite: {pos_count: 1, neg_count: 1, test_cmd: t}\nsubject: {dir: ./s, target_file: a.c}\nfitness: {sample_fraction: 1.5}\n",
			true,
		},
		{
			"first-failure strategy accepted",
			"suite: {pos_count: 1, neg_count: 1, test_cmd: t}\nsubject: {dir: ./s, target_file: a.c}\nfitness: {strategy: first-failure}\n",
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := loadString(t, tc.yaml)
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
