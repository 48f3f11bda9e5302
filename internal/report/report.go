package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/singlefault/mend/internal/archive"
	"github.com/singlefault/mend/internal/result"
)

type RunSummary struct {
	RunID          string  `json:"run_id"`
	StartedAt      string  `json:"started_at"`
	Strategy       string  `json:"strategy"`
	Evaluated      int     `json:"evaluated"`
	BestFitness    float64 `json:"best_fitness"`
	MaxFitness     float64 `json:"max_fitness"`
	Repairs        int     `json:"repairs"`
	MeanDurationMS float64 `json:"mean_duration_ms"`
}

type EvaluationRow struct {
	Variant    string  `json:"variant"`
	Strategy   string  `json:"strategy"`
	Fitness    float64 `json:"fitness"`
	MaxFitness float64 `json:"max_fitness"`
	Success    bool    `json:"success"`
	DurationMS int64   `json:"duration_ms"`
}

// Generate summarizes every archived run, one row per run, newest first.
func Generate(ctx context.Context, store *archive.Store, format string, w io.Writer) error {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		evals, err := store.ListEvaluations(ctx, run.RunID)
		if err != nil {
			return err
		}
		summaries = append(summaries, summarize(run, evals))
	}

	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

// GenerateRun details the evaluations of a single run, best first.
func GenerateRun(ctx context.Context, store *archive.Store, runID, format string, w io.Writer) error {
	if _, ok, err := store.GetRun(ctx, runID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("run %s not in archive", runID)
	}
	evals, err := store.ListEvaluations(ctx, runID)
	if err != nil {
		return err
	}
	rows := make([]EvaluationRow, 0, len(evals))
	for _, e := range evals {
		rows = append(rows, EvaluationRow{
			Variant:    e.Variant,
			Strategy:   e.Strategy,
			Fitness:    e.Fitness,
			MaxFitness: e.MaxFitness,
			Success:    e.Success,
			DurationMS: e.DurationMS,
		})
	}

	switch format {
	case "markdown":
		return writeRunMarkdown(rows, w)
	case "json":
		return writeJSON(rows, w)
	default:
		return writeRunTable(rows, w)
	}
}

func summarize(run result.RunMeta, evals []archive.Evaluation) RunSummary {
	s := RunSummary{
		RunID:      run.RunID,
		StartedAt:  run.StartedAt.Format("2006-01-02 15:04"),
		Strategy:   run.Strategy,
		Evaluated:  len(evals),
		MaxFitness: run.MaxFitness,
		Repairs:    run.Repairs,
	}
	var totalMS int64
	for _, e := range evals {
		if e.Fitness > s.BestFitness {
			s.BestFitness = e.Fitness
		}
		totalMS += e.DurationMS
	}
	if len(evals) > 0 {
		s.MeanDurationMS = float64(totalMS) / float64(len(evals))
	}
	return s
}

func writeTable(summaries []RunSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTRATEGY\tEVALUATED\tBEST/MAX\tREPAIRS\tMEAN MS")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f/%.2f\t%d\t%.0f\n",
			s.RunID, s.StartedAt, s.Strategy, s.Evaluated, s.BestFitness, s.MaxFitness, s.Repairs, s.MeanDurationMS)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []RunSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Run | Started | Strategy | Evaluated | Best/Max | Repairs | Mean ms |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %s | %d | %.2f/%.2f | %d | %.0f |\n",
			s.RunID, s.StartedAt, s.Strategy, s.Evaluated, s.BestFitness, s.MaxFitness, s.Repairs, s.MeanDurationMS)
	}
	return nil
}

func writeRunTable(rows []EvaluationRow, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tSTRATEGY\tFITNESS\tSUCCESS\tDURATION")
	fmt.Fprintln(tw, strings.Repeat("-", 60))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%.2f/%.2f\t%s\t%dms\n",
			r.Variant, r.Strategy, r.Fitness, r.MaxFitness, successMark(r.Success), r.DurationMS)
	}
	return tw.Flush()
}

func writeRunMarkdown(rows []EvaluationRow, w io.Writer) error {
	fmt.Fprintln(w, "| Variant | Strategy | Fitness | Success | Duration |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, r := range rows {
		fmt.Fprintf(w, "| %s | %s | %.2f/%.2f | %s | %dms |\n",
			r.Variant, r.Strategy, r.Fitness, r.MaxFitness, successMark(r.Success), r.DurationMS)
	}
	return nil
}

func successMark(success bool) string {
	if success {
		return "yes"
	}
	return "-"
}

func writeJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
