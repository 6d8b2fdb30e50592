package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/adapters/persistence/repositories"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/pkg/lock"

	"github.com/shopspring/decimal"
)

// DefaultQueryTimeout bounds every storage call made by a service
const DefaultQueryTimeout = 5 * time.Second

// NotifyRequest describes one notification about a case event
type NotifyRequest struct {
	TargetEmail   string
	TargetUserID  *uint
	TargetPhone   *string
	Title         string
	Message       string
	Severity      domain.AlertSeverity
	RelatedCaseID *uint
}

// Notifier is told about case events after they commit. It never reports failure
// back to the caller.
type Notifier interface {
	Notify(ctx context.Context, req NotifyRequest)
}

// AlertSink delivers a persisted alert to an outside channel
type AlertSink interface {
	Deliver(ctx context.Context, alert *models.Alert) error
}

// NopNotifier drops every notification
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, NotifyRequest) {}

func storageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// storageError converts lock and storage failures into domain errors
func storageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, lock.ErrNotAcquired) {
		return domain.TransientStorage("borrower is being modified by another request, retry", err)
	}
	return repositories.Classify(err)
}

// caseLookupError reports a missing case by id and classifies everything else
func caseLookupError(err error, id uint) error {
	if repositories.IsNotFound(err) {
		return domain.NotFound(fmt.Sprintf("case %d not found", id))
	}
	return storageError(err)
}

// isMoney reports whether d fits a decimal(15,2) column without rounding
func isMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2)) && d.Abs().LessThan(decimal.New(1, 13))
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
