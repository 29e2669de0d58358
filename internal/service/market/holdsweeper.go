package market

import (
	"context"
	"sync"
	"time"

	"github.com/amanarcarbon/carbonmart/internal/logger"
	"github.com/amanarcarbon/carbonmart/internal/models"
)

const (
	defaultCountWorkers  = 4                // Number of workers cancelling expired holds
	defaultSweepInterval = 30 * time.Second // Interval between sweeps
	defaultSweepBatch    = 100
)

type SweeperConfig struct {
	// Interval between sweeps
	// If not set then default is used
	Interval time.Duration

	// Number of workers cancelling expired holds and the list batch size
	// If not set then defaults are used
	CountWorkers int
	BatchSize    int
}

// HoldSweeper periodically cancels pending transactions whose checkout hold
// expired, returning their reserved credits to the available pool
type HoldSweeper struct {
	countWorkers int
	interval     time.Duration
	batchSize    int

	market *MarketService
	logger logger.Logger
}

func NewHoldSweeper(cfg SweeperConfig, market *MarketService, l logger.Logger) *HoldSweeper {
	if cfg.Interval == 0 {
		cfg.Interval = defaultSweepInterval
	}
	if cfg.CountWorkers == 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultSweepBatch
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &HoldSweeper{
		countWorkers: cfg.CountWorkers,
		interval:     cfg.Interval,
		batchSize:    cfg.BatchSize,
		market:       market,
		logger:       l,
	}
}

// Sweep runs the producer and worker pool until the context is cancelled.
// The returned channel closes when every goroutine has stopped.
func (hs *HoldSweeper) Sweep(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	expiredChan := make(chan models.Transaction)
	producerStopped := hs.produce(ctx, expiredChan)
	workersStopped := hs.consume(ctx, expiredChan)

	go func() {
		defer close(idleStopped)
		<-producerStopped
		close(expiredChan)
		<-workersStopped
		hs.logger.Debug("HoldSweeper stopped")
	}()

	return idleStopped
}

func (hs *HoldSweeper) produce(ctx context.Context, out chan<- models.Transaction) <-chan struct{} {
	idleStopped := make(chan struct{})
	hs.logger.Debug("Starting hold sweeper", "interval", hs.interval, "batch_size", hs.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(hs.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				hs.logger.Debug("Sweeper producer stopped by context")
				return

			case <-ticker.C:
				expired, err := hs.market.storage.Transaction().ListExpiredPending(ctx, time.Now(), hs.batchSize)
				if err != nil {
					hs.logger.Error("Failed to list expired holds", "error", err)
					continue
				}

				for _, transaction := range expired {
					select {
					case <-ctx.Done():
						hs.logger.Debug("Sweeper producer stopped by context while sending")
						return
					case out <- transaction:
					}
				}
			}
		}
	}()

	return idleStopped
}

func (hs *HoldSweeper) consume(ctx context.Context, in <-chan models.Transaction) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for range hs.countWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hs.worker(ctx, in)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		hs.logger.Debug("Sweeper workers stopped")
	}()

	return idleStopped
}

func (hs *HoldSweeper) worker(ctx context.Context, in <-chan models.Transaction) {
	for {
		select {
		case <-ctx.Done():
			return

		case transaction, ok := <-in:
			if !ok {
				return
			}

			if err := hs.market.CancelExpired(ctx, transaction); err != nil {
				hs.logger.Error("Failed to cancel expired hold", "transaction_id", transaction.ID, "error", err)
				continue
			}

			hs.logger.Info("Cancelled expired checkout hold",
				"transaction_id", transaction.ID, "expired_at", transaction.HoldExpiresAt)
		}
	}
}
