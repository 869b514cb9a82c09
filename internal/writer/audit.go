package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/empire-bidder/internal/model"
	"github.com/rickgao/empire-bidder/internal/router"
)

// WriterConfig holds batching settings.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// WriterMetrics contains runtime statistics.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64 // Recorded after Stop
}

// BatchSender sends a pgx batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type auditRow struct {
	AttemptID     uuid.UUID
	NegotiationID uuid.UUID
	ItemID        int64
	MarketName    string
	BidValue      int64
	BidMax        int64
	Result        string
	ErrorKey      string
	Message       string
	SentAt        time.Time
}

const insertAttempt = `
	INSERT INTO bid_attempts (attempt_id, negotiation_id, item_id, market_name, bid_value, bid_max, result, error_key, message, sent_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (attempt_id) DO NOTHING
`

// AuditWriter records bid attempts to the bid_attempts table.
type AuditWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Attempts waiting to be batched
	input *router.Queue[model.BidAttempt]

	// Database
	db BatchSender

	// Batching
	batch       []auditRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	consumerDone chan struct{}

	// Metrics
	metrics WriterMetrics
}

// NewAuditWriter creates a new AuditWriter.
func NewAuditWriter(cfg WriterConfig, db BatchSender, logger *slog.Logger) *AuditWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultWriterConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultWriterConfig().FlushInterval
	}
	return &AuditWriter{
		cfg:          cfg,
		input:        router.NewQueue[model.BidAttempt](cfg.BatchSize),
		db:           db,
		logger:       logger,
		batch:        make([]auditRow, 0, cfg.BatchSize),
		consumerDone: make(chan struct{}),
	}
}

// Record queues an attempt. It never blocks.
func (w *AuditWriter) Record(a model.BidAttempt) {
	if !w.input.Send(a) {
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
	}
}

// Start begins consuming attempts and writing to the database.
func (w *AuditWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("bid audit writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains queued attempts, then flushes what remains using ctx.
func (w *AuditWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping bid audit writer")

	w.input.Close()

	select {
	case <-w.consumerDone:
	case <-ctx.Done():
		w.logger.Warn("bid audit writer drain timed out", "pending", w.input.Len())
	}

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("bid audit writer stopped")
	case <-ctx.Done():
		w.logger.Warn("bid audit writer stop timed out")
	}

	// Final flush
	w.flush(context.WithoutCancel(ctx))

	return nil
}

// Stats returns current metrics.
func (w *AuditWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop moves attempts from the input queue into batches until the
// queue is closed and drained.
func (w *AuditWriter) consumeLoop() {
	defer w.wg.Done()
	defer close(w.consumerDone)

	for {
		a, ok := w.input.Receive()
		if !ok {
			return
		}
		w.handleAttempt(a)
	}
}

// flushLoop periodically flushes the batch.
func (w *AuditWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// handleAttempt transforms and adds an attempt to the batch.
func (w *AuditWriter) handleAttempt(a model.BidAttempt) {
	row := transform(a)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		// Not w.ctx: a full batch during the Stop drain must still land.
		w.flush(context.WithoutCancel(w.ctx))
	}
}

// transform converts a BidAttempt to an auditRow.
func transform(a model.BidAttempt) auditRow {
	sentAt := a.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	return auditRow{
		AttemptID:     a.ID,
		NegotiationID: a.NegotiationID,
		ItemID:        a.ItemID,
		MarketName:    a.MarketName,
		BidValue:      a.Value,
		BidMax:        a.Max,
		Result:        a.Result,
		ErrorKey:      a.ErrorKey,
		Message:       a.Message,
		SentAt:        sentAt.UTC(),
	}
}

// flush writes the current batch to the database.
func (w *AuditWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]auditRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed bid attempts",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *AuditWriter) batchInsert(ctx context.Context, rows []auditRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertAttempt,
			r.AttemptID, r.NegotiationID, r.ItemID, r.MarketName, r.BidValue,
			r.BidMax, r.Result, r.ErrorKey, r.Message, r.SentAt,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
