package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	redisclient "github.com/ismail-169/sentinel-finance-sub000/internal/redis"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
	"github.com/ismail-169/sentinel-finance-sub000/internal/service"
)

// MonitorJob runs the hourly checks: savings plans whose lock has elapsed
// get a one-time unlock notification, and vaults whose balance can no
// longer cover a day of spending get a low-balance warning. Warnings are
// deduplicated through redis so an owner hears about each vault at most
// once per day.
type MonitorJob struct {
	vaultRepo repository.VaultRepository
	savings   *service.SavingsService
	notifier  service.Notifier
	redis     *redisclient.Client
	interval  time.Duration
	done      chan struct{}
}

func NewMonitorJob(
	vaultRepo repository.VaultRepository,
	savings *service.SavingsService,
	notifier service.Notifier,
	redis *redisclient.Client,
	interval time.Duration,
) *MonitorJob {
	return &MonitorJob{
		vaultRepo: vaultRepo,
		savings:   savings,
		notifier:  notifier,
		redis:     redis,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *MonitorJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("monitor job started")
}

func (j *MonitorJob) Stop() {
	close(j.done)
	log.Info().Msg("monitor job stopped")
}

func (j *MonitorJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.check()
		}
	}
}

func (j *MonitorJob) check() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if n, err := j.savings.NotifyUnlocked(ctx); err != nil {
		log.Error().Err(err).Msg("plan unlock check failed")
	} else if n > 0 {
		log.Info().Int("plans", n).Msg("plan unlock notifications sent")
	}

	j.checkLowBalances(ctx)
}

func (j *MonitorJob) checkLowBalances(ctx context.Context) {
	vaults, err := j.vaultRepo.FindAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("low balance check failed")
		return
	}

	for i := range vaults {
		vault := &vaults[i]
		limit := vault.DailyLimit()
		if limit.Sign() == 0 || vault.Balance().Cmp(limit) >= 0 {
			continue
		}

		key := "lowbalance:" + vault.VaultAddress
		set, err := j.redis.SetNX(ctx, key, "1", 24*time.Hour).Result()
		if err != nil {
			log.Error().Err(err).Str("vault", vault.VaultAddress).Msg("low balance dedupe failed")
			continue
		}
		if !set {
			continue
		}

		j.notifier.Notify(ctx, vault.WalletAddress, model.NotificationLowBalance,
			fmt.Sprintf("Vault balance %s wei is below the daily limit %s", vault.BalanceWei, vault.DailyLimitWei), nil)
	}
}
