package scheduler

import (
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// OptimizeJob re-runs the portfolio optimization on a schedule so the stored
// allocation tracks fresh price data.
type OptimizeJob struct {
	runner *optimization.Runner
	log    zerolog.Logger
}

// NewOptimizeJob creates the scheduled optimization job.
func NewOptimizeJob(runner *optimization.Runner, log zerolog.Logger) *OptimizeJob {
	return &OptimizeJob{
		runner: runner,
		log:    log.With().Str("job", "optimize").Logger(),
	}
}

// Name returns the job name
func (j *OptimizeJob) Name() string {
	return "optimize"
}

// Run executes one optimization pass.
func (j *OptimizeJob) Run() error {
	result, err := j.runner.Run()
	if err != nil {
		return err
	}

	j.log.Info().
		Str("id", result.ID).
		Float64("sharpe_ratio", result.SharpeRatio).
		Msg("Scheduled optimization complete")
	return nil
}
