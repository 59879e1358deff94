// Package engine orchestrates the poll-detect-notify-persist cycle.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockwatch/internal/extract"
	"stockwatch/internal/metrics"
	"stockwatch/internal/notify"
	"stockwatch/internal/store"
	domain "stockwatch/pkg/types"
)

// Engine runs poll cycles: extract the listing, classify each record
// against the store, alert on new arrivals and restocks, and persist the
// observed state.
type Engine struct {
	store     store.Store
	extractor extract.Extractor
	notifier  notify.Notifier
	log       *slog.Logger

	// runMu serializes cycles: the scheduler loop and manual API triggers
	// must never interleave writes to the store.
	runMu sync.Mutex
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s store.Store,
	ex extract.Extractor,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:     s,
		extractor: ex,
		notifier:  n,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// RunCycle executes one full poll cycle and reports what happened.
//
// A failed or empty extraction fails the cycle without touching the store:
// soft-deleting the whole catalog because the page was down once would be
// wrong. Per-record store errors fail the cycle too, and skip deactivation
// because the observed id set is incomplete. Notification errors only lose
// that one alert; the record is still persisted.
func (eng *Engine) RunCycle(ctx context.Context) domain.CycleResult {
	eng.runMu.Lock()
	defer eng.runMu.Unlock()

	cycleID := uuid.New().String()[:8]
	log := eng.log.With("cycle_id", cycleID)

	start := time.Now()
	metrics.CyclesTotal.Inc()
	defer func() {
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	products, err := eng.extractor.FetchListing(ctx)
	if err != nil {
		log.Error("listing extraction failed", "error", err)
		metrics.CycleFailuresTotal.Inc()
		return domain.CycleResult{Failed: true}
	}
	if len(products) == 0 {
		log.Warn("extraction returned no products, treating as failed pass")
		metrics.CycleFailuresTotal.Inc()
		return domain.CycleResult{Failed: true}
	}

	metrics.ProductsObservedTotal.Add(float64(len(products)))

	result := domain.CycleResult{Found: len(products)}
	seenIDs := make([]string, 0, len(products))

	for i := range products {
		if ctx.Err() != nil {
			log.Info("cycle interrupted", "processed", i, "found", len(products))
			return result
		}

		p := &products[i]
		if p.ID == "" {
			log.Debug("dropping record without identifier", "name", p.Name)
			metrics.ProductsDroppedTotal.Inc()
			continue
		}
		seenIDs = append(seenIDs, p.ID)

		if err := eng.processProduct(ctx, log, p, &result); err != nil {
			log.Error("cycle aborted on store error", "product_id", p.ID, "error", err)
			metrics.CycleFailuresTotal.Inc()
			result.Failed = true
			return result
		}
	}

	// A pass where every record lost its id is markup drift, not an empty
	// catalog; deactivating against an empty id set would wipe every row.
	if len(seenIDs) == 0 {
		log.Warn("every extracted record lacked an identifier, treating as failed pass")
		metrics.CycleFailuresTotal.Inc()
		result.Failed = true
		return result
	}

	deactivated, err := eng.store.DeactivateMissing(ctx, seenIDs)
	if err != nil {
		log.Error("deactivating missing products failed", "error", err)
		metrics.CycleFailuresTotal.Inc()
		result.Failed = true
		return result
	}
	if deactivated > 0 {
		log.Info("deactivated products no longer listed", "count", deactivated)
	}

	if err := eng.store.RecordCheck(ctx, result.Found, result.AlertsSent); err != nil {
		log.Warn("recording check failed", "error", err)
	}

	eng.updateActiveGauge(ctx)

	log.Info("cycle complete",
		"found", result.Found,
		"alerts_sent", result.AlertsSent,
		"deactivated", deactivated,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return result
}

// processProduct classifies one record, alerts if warranted, and persists
// it. The upsert runs on a context detached from cancellation so a record
// already being processed at shutdown still lands in the store.
func (eng *Engine) processProduct(
	ctx context.Context,
	log *slog.Logger,
	p *domain.Product,
	result *domain.CycleResult,
) error {
	classification, err := eng.store.Classify(ctx, p)
	if err != nil {
		return fmt.Errorf("classifying %s: %w", p.ID, err)
	}

	if classification.Alerting() {
		log.Info("alerting product",
			"product_id", p.ID,
			"name", p.Name,
			"classification", classification,
		)

		if err := eng.notifier.SendAlert(ctx, notify.AlertPayload{
			Product:        *p,
			Classification: classification,
		}); err != nil {
			log.Error("alert delivery failed", "product_id", p.ID, "error", err)
			metrics.NotificationFailuresTotal.Inc()
		} else {
			result.AlertsSent++
			metrics.AlertsSentTotal.WithLabelValues(string(classification)).Inc()
		}
	}

	upsertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := eng.store.UpsertProduct(upsertCtx, p, classification); err != nil {
		return fmt.Errorf("upserting %s: %w", p.ID, err)
	}
	return nil
}

// Stats returns aggregate store statistics.
func (eng *Engine) Stats(ctx context.Context) (*domain.Stats, error) {
	return eng.store.Stats(ctx)
}

func (eng *Engine) updateActiveGauge(ctx context.Context) {
	stats, err := eng.store.Stats(ctx)
	if err != nil {
		eng.log.Warn("reading stats for gauge update failed", "error", err)
		return
	}
	metrics.ActiveProducts.Set(float64(stats.TotalActiveProducts))
}
