package scheduler

import (
	"github.com/aristath/allocator/internal/database"
	"github.com/aristath/allocator/internal/modules/calculations"
	"github.com/rs/zerolog"
)

// MaintenanceJob keeps the databases healthy: it purges expired cache entries
// and truncates the WAL files so they do not grow unbounded.
type MaintenanceJob struct {
	databases []*database.DB
	cache     *calculations.Cache
	log       zerolog.Logger
}

// NewMaintenanceJob creates the database maintenance job.
func NewMaintenanceJob(databases []*database.DB, cache *calculations.Cache, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		cache:     cache,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run purges expired cache entries and checkpoints every database.
func (j *MaintenanceJob) Run() error {
	if err := j.cache.Purge(); err != nil {
		j.log.Warn().Err(err).Msg("Cache purge failed")
	}

	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			continue
		}
		j.log.Debug().Str("database", db.Name()).Msg("WAL checkpoint complete")
	}

	return nil
}
