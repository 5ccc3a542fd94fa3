package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ismail-169/sentinel-finance-sub000/internal/config"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
)

// RetentionJob prunes aged execution-log rows and read notifications on a
// daily cadence.
type RetentionJob struct {
	executionRepo    repository.ExecutionLogRepository
	notificationRepo repository.NotificationRepository
	interval         time.Duration
	done             chan struct{}
}

func NewRetentionJob(
	executionRepo repository.ExecutionLogRepository,
	notificationRepo repository.NotificationRepository,
	interval time.Duration,
) *RetentionJob {
	return &RetentionJob{
		executionRepo:    executionRepo,
		notificationRepo: notificationRepo,
		interval:         interval,
		done:             make(chan struct{}),
	}
}

func (j *RetentionJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("retention job started")
}

func (j *RetentionJob) Stop() {
	close(j.done)
	log.Info().Msg("retention job stopped")
}

func (j *RetentionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.prune()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.prune()
		}
	}
}

func (j *RetentionJob) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	if n, err := j.executionRepo.DeleteBefore(ctx, now.Add(-config.ExecutionLogRetention)); err != nil {
		log.Error().Err(err).Msg("failed to prune execution log")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("pruned execution log")
	}

	if n, err := j.notificationRepo.DeleteReadBefore(ctx, now.Add(-config.NotificationRetention)); err != nil {
		log.Error().Err(err).Msg("failed to prune notifications")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("pruned read notifications")
	}
}
