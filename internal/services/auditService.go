package services

import (
	"context"
	"time"

	"github.com/ayushpanday7/open-drive/internal/config"
	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/metrics"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"go.uber.org/zap"
)

const auditWriteTimeout = 10 * time.Second

// Auditor appends audit events. In detached mode writes run on a worker
// pool after the request has been answered and are dropped when the queue
// is full; in sync mode they run inline. A failed write is only logged.
type Auditor struct {
	events *db.Repository[models.AuditEvent]
	pool   *utils.WorkerPool
}

// NewAuditor builds an auditor for mode (config.AuditDetached or
// config.AuditSync).
func NewAuditor(events *db.Repository[models.AuditEvent], mode string, workers int) *Auditor {
	a := &Auditor{events: events}
	if mode == config.AuditDetached {
		a.pool = utils.NewWorkerPool(workers)
	}
	return a
}

// Record appends ev.
func (a *Auditor) Record(ctx context.Context, ev models.AuditEvent) {
	if a.pool == nil {
		a.write(ctx, ev)
		return
	}

	detached := context.WithoutCancel(ctx)
	err := a.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(detached, auditWriteTimeout)
		defer cancel()
		a.write(ctx, ev)
	})
	if err != nil {
		zap.L().Warn("Dropped audit event", zap.String("message", ev.Message), zap.Error(err))
		metrics.AuditWrites.WithLabelValues("failed").Inc()
	}
}

func (a *Auditor) write(ctx context.Context, ev models.AuditEvent) {
	res := a.events.Create(ctx, &ev)
	if !res.OK() {
		zap.L().Warn("Failed to record audit event",
			zap.String("message", ev.Message),
			zap.String("user", ev.User.Hex()),
			zap.Int("status", res.Status),
		)
		metrics.AuditWrites.WithLabelValues("failed").Inc()
		return
	}
	metrics.AuditWrites.WithLabelValues("ok").Inc()
}

// Flush waits for queued writes to finish.
func (a *Auditor) Flush() {
	if a.pool != nil {
		a.pool.Wait()
	}
}

// Close drains the queue and stops the workers.
func (a *Auditor) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
