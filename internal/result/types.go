package result

import "time"

// RunMeta summarizes one search run; written as run.json in the run dir.
type RunMeta struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	DurationS      int       `json:"duration_s"`
	Strategy       string    `json:"strategy"`
	PosCount       int       `json:"pos_count"`
	NegCount       int       `json:"neg_count"`
	NegativeWeight float64   `json:"negative_weight"`
	SampleFraction float64   `json:"sample_fraction"`
	SingleFitness  bool      `json:"single_fitness,omitempty"`
	MaxFitness     float64   `json:"max_fitness"`
	Seed           int64     `json:"seed"`
	Candidates     int       `json:"candidates"`
	Evaluated      int       `json:"evaluated"`
	Repairs        int       `json:"repairs"`
}

// RepairMeta describes one found repair; written as meta.json in its
// repair directory next to the persisted source.
type RepairMeta struct {
	Index      int       `json:"index"`
	Variant    string    `json:"variant"`
	Fitness    float64   `json:"fitness"`
	MaxFitness float64   `json:"max_fitness"`
	FoundAt    time.Time `json:"found_at"`
	SourceFile string    `json:"source_file"`
	PatchFile  string    `json:"patch_file,omitempty"`
}
