package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/nemanja-m/enhancify/internal/coordinator/core"
	"github.com/nemanja-m/enhancify/internal/shared/config"
	"github.com/nemanja-m/enhancify/pkg/types"
)

const rule = "******************************************************************************************"

// Report is the outcome of a single run as shown to the user.
type Report struct {
	RunID     uuid.UUID
	Mode      Mode
	Mechanism string
	Workers   int
	Settings  types.AlgorithmConfig
	Warnings  []config.Warning
	Skipped   []core.Skipped
	Summary   *core.BatchSummary
}

// Succeeded reports whether at least one image was enhanced.
func (r *Report) Succeeded() bool {
	return r.Summary != nil && r.Summary.Succeeded() > 0
}

func (r *Report) WriteBanner(w io.Writer) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "* Running the %s version of Enhancify\n\n", r.Mode)
	fmt.Fprintln(w, " * GA settings")
	fmt.Fprintf(w, "   -> Number of chromosome: %d\n", r.Settings.PopulationSize)
	fmt.Fprintf(w, "   -> Number of elite chromosomes: %d\n", r.Settings.ElitismCount)
	fmt.Fprintf(w, "   -> Number of generations: %d\n", r.Settings.Generations)
	fmt.Fprintf(w, "   -> Crossover rate: %.2f\n", r.Settings.CrossoverRate)
	fmt.Fprintf(w, "   -> Mutation rate:  %.2f\n", r.Settings.MutationRate)
	fmt.Fprintf(w, "   -> Selection: %s\n\n", describeSelection(r.Settings))
	if r.Mode == ModeDistributed {
		fmt.Fprintf(w, " * Enhancify is using %d cores\n\n", r.Workers)
	}
}

// Write prints one line per image and the batch totals. Failures are always
// itemized; successful images only when verbose.
func (r *Report) Write(w io.Writer, verbose bool) {
	if r.Summary == nil {
		return
	}

	for _, result := range r.Summary.Results {
		switch {
		case result.Failed():
			fmt.Fprintf(w, " ! Image %s failed on worker %d: %v\n", result.InputPath, result.WorkerID, failureCause(result.Err))
		case verbose:
			fmt.Fprintf(w, " * Analyzed image %s -> Elapsed time %5.2fs on worker %d\n",
				result.InputPath, result.Elapsed.Seconds(), result.WorkerID)
		}
	}

	total := r.Summary.TotalJobs
	if verbose && total > 1 {
		fmt.Fprintf(w, "\n * Total elapsed time %5.2fs for computing %d images\n", r.Summary.Elapsed.Seconds(), total)
		fmt.Fprintf(w, " * Mean elapsed time  %5.2fs per image\n", r.Summary.Mean().Seconds())
	}
	fmt.Fprintf(w, " * Enhanced %d of %d images (%d failed)\n", r.Summary.Succeeded(), total, len(r.Summary.Failed()))
	if verbose {
		fmt.Fprintln(w, rule)
	}
}

func describeSelection(cfg types.AlgorithmConfig) string {
	switch cfg.Selection {
	case types.SelectionWheel:
		return "wheel roulette"
	case types.SelectionRanking:
		return "ranking"
	default:
		return fmt.Sprintf("tournament with %d individuals", cfg.TournamentPressure)
	}
}

// failureCause strips the job marker so the path is not printed twice.
func failureCause(err error) string {
	msg := err.Error()
	var jobErr *types.JobError
	if errors.As(err, &jobErr) && jobErr.Err != nil {
		msg = jobErr.Err.Error()
	}
	return strings.TrimSpace(msg)
}
