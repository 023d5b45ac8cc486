// Package worker implements the buffered worker pool that mirrors accepted
// submissions into ClickHouse for downstream analytics. This decouples the
// single-writer ledger from analytics I/O, providing:
// - Backpressure handling via load shedding
// - Batch inserts for efficient ClickHouse writes
// - Graceful shutdown with flush guarantees
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/skyarcade/score-ledger/internal/models"
)

// Prometheus metrics
var (
	submissionsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_export_enqueued_total",
		Help: "Total number of submissions enqueued for analytics export",
	})

	submissionsExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_export_written_total",
		Help: "Total number of submissions written to ClickHouse",
	})

	exportsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_export_failed_total",
		Help: "Total number of submissions that failed analytics export",
	})

	exportsShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_export_shed_total",
		Help: "Total number of submissions dropped due to load shedding",
	})

	exportQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_export_queue_depth",
		Help: "Current depth of the analytics export queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_export_batch_duration_seconds",
		Help:    "Duration of batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})
)

// PoolConfig configures the export pool.
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	ClickHouse    driver.Conn
	Logger        *zap.Logger
}

// Pool manages the export workers. It satisfies notify.ExportQueue.
type Pool struct {
	config   PoolConfig
	jobQueue chan models.ScoreSubmission
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
}

// NewPool creates an export pool. Zero config values fall back to
// defaults sized for a single ledger instance.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan models.ScoreSubmission, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	go p.reportQueueDepth()

	p.logger.Infow("Export pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop gracefully shuts down the pool, flushing buffered submissions.
func (p *Pool) Stop() {
	p.logger.Info("Stopping export pool...")
	p.cancel()
	close(p.jobQueue)
	p.wg.Wait()
	p.logger.Info("Export pool stopped")
}

// Enqueue queues a submission for export. Returns false when the pool is
// stopping or saturated; the submission is shed, never blocks the ledger.
func (p *Pool) Enqueue(sub models.ScoreSubmission) bool {
	// Protect against sending on closed channel during shutdown
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue submission (pool stopped)", "error", r)
		}
	}()

	select {
	case p.jobQueue <- sub:
		submissionsEnqueued.Inc()
		return true
	default:
		exportsShed.Inc()
		return false
	}
}

// QueueDepth returns current queue size.
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			exportQueueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}

// worker drains the queue in batches, flushing on size or interval.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]models.ScoreSubmission, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := p.exportBatch(batch); err != nil {
			p.logger.Errorw("Batch export failed", "worker", id, "batchSize", len(batch), "error", err)
			exportsFailed.Add(float64(len(batch)))
		} else {
			submissionsExported.Add(float64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())
		batch = batch[:0]
	}

	for {
		select {
		case sub, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, sub)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-p.ctx.Done():
			// Drain whatever is already queued, then flush and exit.
			for {
				select {
				case sub, ok := <-p.jobQueue:
					if !ok {
						flush()
						return
					}
					batch = append(batch, sub)
					if len(batch) >= p.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// exportBatch writes one batch to ClickHouse.
func (p *Pool) exportBatch(batch []models.ScoreSubmission) error {
	ctx := context.Background()

	chBatch, err := p.config.ClickHouse.PrepareBatch(ctx, `
		INSERT INTO arcade.score_submissions (
			id, identifier, submitter, mode, score, distance, currency, play_time, submitted_at
		)
	`)
	if err != nil {
		return err
	}

	for _, sub := range batch {
		if err := chBatch.Append(
			sub.ID,
			sub.Identifier,
			sub.Submitter,
			sub.Mode.String(),
			sub.Score,
			sub.Distance,
			sub.Currency,
			sub.PlayTime,
			time.Unix(sub.SubmittedAt, 0).UTC(),
		); err != nil {
			p.logger.Warnw("Failed to append submission to batch", "submission", sub.ID, "error", err)
			continue
		}
	}

	return chBatch.Send()
}
