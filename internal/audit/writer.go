package audit

import (
	"context"
	"log/slog"
	"time"

	"curanet/internal/platform/metrics"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/requestcontext"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 50 * time.Millisecond
)

// Writer is the append path in front of a Store. Appends are synchronous:
// the caller is not told an outcome until the entry is durable or the retry
// budget is exhausted. Transient store failures are retried with backoff
// rather than abandoned, because a lost denial record is as bad as a lost
// permit record.
type Writer struct {
	store       Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	maxAttempts int
	backoff     time.Duration
}

// WriterOption configures the Writer.
type WriterOption func(*Writer)

// WithLogger sets a logger for retry and failure reporting.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithMetrics enables append/retry/failure counters.
func WithMetrics(m *metrics.Metrics) WriterOption {
	return func(w *Writer) {
		w.metrics = m
	}
}

// WithRetry overrides the retry budget and base backoff.
func WithRetry(maxAttempts int, backoff time.Duration) WriterOption {
	return func(w *Writer) {
		if maxAttempts > 0 {
			w.maxAttempts = maxAttempts
		}
		if backoff > 0 {
			w.backoff = backoff
		}
	}
}

func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:       store,
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Append fills in the entry's identity and request-scoped client metadata,
// then persists it. Returns a CodeAuditWriteFailed error when the store stays
// unavailable past the retry budget; the caller applies its fail-open or
// fail-closed policy.
func (w *Writer) Append(ctx context.Context, entry *Entry) error {
	if entry.ID.IsNil() {
		entry.ID = id.NewEntryID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	client := requestcontext.Client(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = client.IPAddress
	}
	if entry.UserAgent == "" {
		entry.UserAgent = client.UserAgent
	}

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		lastErr = w.store.Append(ctx, entry)
		if lastErr == nil {
			if w.metrics != nil {
				w.metrics.AuditAppends.Inc()
			}
			return nil
		}

		if attempt < w.maxAttempts {
			if w.metrics != nil {
				w.metrics.AuditAppendRetries.Inc()
			}
			w.logger.Warn("audit append failed, retrying",
				"error", lastErr,
				"action", entry.Action,
				"attempt", attempt,
			)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = w.maxAttempts
			case <-time.After(w.backoff * time.Duration(attempt)):
			}
		}
	}

	if w.metrics != nil {
		w.metrics.AuditAppendFailed.Inc()
	}
	w.logger.Error("audit append failed permanently",
		"error", lastErr,
		"action", entry.Action,
		"actor_id", entry.ActorID,
		"subject_id", entry.SubjectID,
	)
	return dErrors.Wrap(lastErr, dErrors.CodeAuditWriteFailed, "audit trail write failed")
}

// Query proxies to the store.
func (w *Writer) Query(ctx context.Context, filter QueryFilter, page Page) ([]*Entry, int, error) {
	return w.store.Query(ctx, filter, page)
}

// ExportRange proxies to the store.
func (w *Writer) ExportRange(ctx context.Context, filter QueryFilter, limit int) ([]*Entry, error) {
	return w.store.ExportRange(ctx, filter, limit)
}
