package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Suite      Suite   `yaml:"suite"`
	Subject    Subject `yaml:"subject"`
	Candidates string  `yaml:"candidates"`
	Fitness    Fitness `yaml:"fitness"`
	Search     Search  `yaml:"search"`
	Sandbox    Sandbox `yaml:"sandbox"`
	Results    Results `yaml:"results"`
}

// Suite describes the labeled test suite. TestCmd runs once per test with
// {test} replaced by the case name (p1, n1, s); ProbeCmd optionally
// overrides it for the single-fitness probe.
type Suite struct {
	PosCount       int    `yaml:"pos_count" validate:"min=0"`
	NegCount       int    `yaml:"neg_count" validate:"min=0"`
	TestCmd        string `yaml:"test_cmd" validate:"required"`
	ProbeCmd       string `yaml:"probe_cmd"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=0"`
}

// Subject locates the program under repair: a local directory or a git
// repo plus tag, with the defective file path relative to its root.
type Subject struct {
	Dir        string `yaml:"dir"`
	Repo       string `yaml:"repo"`
	Tag        string `yaml:"tag"`
	TargetFile string `yaml:"target_file" validate:"required"`
	BuildCmd   string `yaml:"build_cmd"`
}

type Fitness struct {
	Strategy       string  `yaml:"strategy" validate:"omitempty,oneof=weighted first-failure"`
	NegativeWeight float64 `yaml:"negative_weight" validate:"omitempty,gt=0"`
	SampleFraction float64 `yaml:"sample_fraction" validate:"omitempty,gt=0,lte=1"`
	SingleFitness  bool    `yaml:"single_fitness"`
	Seed           int64   `yaml:"seed"`
}

type Search struct {
	Parallel int `yaml:"parallel" validate:"omitempty,min=1"`
}

type Sandbox struct {
	Enabled  bool    `yaml:"enabled"`
	Image    string  `yaml:"image"`
	User     string  `yaml:"user"`
	CPULimit float64 `yaml:"cpu_limit" validate:"omitempty,gt=0"`
	MemoryMB int64   `yaml:"memory_mb" validate:"omitempty,gt=0"`
}

// Results controls artifact persistence: the results dir and the repair
// file name, repair.<ext><suffix>.
type Results struct {
	Dir    string `yaml:"dir"`
	Ext    string `yaml:"ext"`
	Suffix string `yaml:"suffix"`
}

var structValidator = validator.New()

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Fitness.Strategy == "" {
		cfg.Fitness.Strategy = "weighted"
	}
	if cfg.Fitness.NegativeWeight == 0 {
		cfg.Fitness.NegativeWeight = 2.0
	}
	if cfg.Fitness.SampleFraction == 0 {
		cfg.Fitness.SampleFraction = 1.0
	}
	if cfg.Search.Parallel == 0 {
		cfg.Search.Parallel = 1
	}
	if cfg.Suite.TimeoutSeconds == 0 {
		cfg.Suite.TimeoutSeconds = 60
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "./results"
	}
	if cfg.Results.Ext == "" {
		cfg.Results.Ext = deriveExt(cfg.Subject.TargetFile)
	}

	if err := structValidator.Struct(cfg); err != nil {
		return err
	}

	if !cfg.Fitness.SingleFitness {
		if cfg.Suite.PosCount < 1 {
			return fmt.Errorf("at least one positive test is required")
		}
		if cfg.Suite.NegCount < 1 {
			return fmt.Errorf("at least one negative test is required")
		}
	}
	if cfg.Subject.Dir == "" && cfg.Subject.Repo == "" {
		return fmt.Errorf("subject dir or repo is required")
	}
	if cfg.Subject.Dir != "" && cfg.Subject.Repo != "" {
		return fmt.Errorf("subject dir and repo are mutually exclusive")
	}
	if cfg.Subject.Repo != "" && cfg.Subject.Tag == "" {
		return fmt.Errorf("subject tag is required with repo")
	}
	if cfg.Sandbox.Enabled && cfg.Sandbox.Image == "" {
		return fmt.Errorf("sandbox image is required when sandbox is enabled")
	}
	return nil
}

func deriveExt(targetFile string) string {
	ext := strings.TrimPrefix(filepath.Ext(targetFile), ".")
	if ext == "" {
		return "out"
	}
	return ext
}
