package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/adapters/persistence/repositories"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"
	"royal-collector/internal/pkg/pagination"
	"royal-collector/internal/pkg/validate"

	"go.uber.org/zap"
)

const (
	// reminderInterval is the minimum gap between two automatic reminders for one case
	reminderInterval = 24 * time.Hour
	// dispatchGrace leaves fresh alerts to the delivery started when they were created
	dispatchGrace = time.Minute
	// dispatchBatch caps how many alerts one dispatch run delivers
	dispatchBatch = 100
	// deliveryTimeout bounds a single sink call
	deliveryTimeout = 30 * time.Second
)

// AlertService persists alerts and hands them to the delivery sink. It is the
// Notifier used by the case and ledger services.
type AlertService struct {
	store   *repositories.Store
	sink    AlertSink
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAlertService creates a new alert service
func NewAlertService(store *repositories.Store, sink AlertSink, log *zap.Logger, timeout time.Duration) *AlertService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AlertService{
		store:   store,
		sink:    sink,
		log:     log,
		timeout: timeout,
	}
}

// CreateAlertInput represents a manually scheduled alert
type CreateAlertInput struct {
	TargetEmail   string               `json:"target_email" validate:"required,email,max=100"`
	TargetPhone   string               `json:"target_phone,omitempty" validate:"max=20"`
	RelatedCaseID *uint                `json:"related_case_id,omitempty"`
	Title         string               `json:"title" validate:"required,max=200"`
	Message       string               `json:"message" validate:"required,max=2000"`
	Severity      domain.AlertSeverity `json:"severity,omitempty" validate:"omitempty,oneof=INFO WARNING CRITICAL"`
	ScheduledFor  *time.Time           `json:"scheduled_for,omitempty"`
}

// ListAlertsOutput represents list output
type ListAlertsOutput struct {
	Alerts []*models.Alert `json:"alerts"`
	Meta   *pagination.Meta `json:"meta"`
}

// Notify stores the alert and starts delivery in the background. Failures are logged.
func (s *AlertService) Notify(ctx context.Context, req NotifyRequest) {
	ctx, cancel := storageContext(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	severity := req.Severity
	if severity == "" {
		severity = domain.AlertSeverityInfo
	}
	alert := &models.Alert{
		TargetEmail:   domain.NormalizeEmail(req.TargetEmail),
		TargetUserID:  req.TargetUserID,
		TargetPhone:   req.TargetPhone,
		RelatedCaseID: req.RelatedCaseID,
		Title:         req.Title,
		Message:       req.Message,
		Severity:      severity,
		Status:        domain.AlertStatusPending,
		ScheduledFor:  time.Now().UTC(),
	}
	if alert.TargetUserID == nil {
		alert.TargetUserID = s.lookupUserID(ctx, alert.TargetEmail)
	}

	if err := s.store.Alerts.Create(ctx, alert); err != nil {
		s.log.Error("failed to store alert",
			zap.String("target_email", alert.TargetEmail),
			zap.String("title", alert.Title),
			zap.Error(err),
		)
		return
	}
	s.deliverAsync(alert)
}

// CreateAlert schedules an alert on behalf of an administrator or worker
func (s *AlertService) CreateAlert(ctx context.Context, p domain.Principal, input *CreateAlertInput) (*models.Alert, error) {
	if !visibility.CanManageAlerts(p) {
		return nil, domain.Forbidden("only administrators and team workers can create alerts")
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	if input.RelatedCaseID != nil {
		if _, err := s.store.Cases.GetByID(ctx, *input.RelatedCaseID); err != nil {
			if repositories.IsNotFound(err) {
				return nil, domain.InvalidReference(fmt.Sprintf("case %d does not exist", *input.RelatedCaseID))
			}
			return nil, storageError(err)
		}
	}

	now := time.Now().UTC()
	alert := &models.Alert{
		TargetEmail:   domain.NormalizeEmail(input.TargetEmail),
		RelatedCaseID: input.RelatedCaseID,
		Title:         input.Title,
		Message:       input.Message,
		Severity:      input.Severity,
		Status:        domain.AlertStatusPending,
		ScheduledFor:  now,
	}
	if alert.Severity == "" {
		alert.Severity = domain.AlertSeverityInfo
	}
	if phone := domain.NormalizePhone(input.TargetPhone); phone != "" {
		alert.TargetPhone = &phone
	}
	if input.ScheduledFor != nil {
		alert.ScheduledFor = input.ScheduledFor.UTC()
	}
	alert.TargetUserID = s.lookupUserID(ctx, alert.TargetEmail)

	if err := s.store.Alerts.Create(ctx, alert); err != nil {
		return nil, storageError(err)
	}

	s.log.Info("alert created",
		zap.Uint("alert_id", alert.ID),
		zap.Uint("principal_id", p.UserID),
		zap.Time("scheduled_for", alert.ScheduledFor),
	)

	if !alert.ScheduledFor.After(now) {
		s.deliverAsync(alert)
	}
	return alert, nil
}

// StopAlert marks an alert as read so it is no longer delivered
func (s *AlertService) StopAlert(ctx context.Context, p domain.Principal, id uint) (*models.Alert, error) {
	if !visibility.CanManageAlerts(p) {
		return nil, domain.Forbidden("only administrators and team workers can stop alerts")
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	alert, err := s.store.Alerts.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.NotFound(fmt.Sprintf("alert %d not found", id))
		}
		return nil, storageError(err)
	}
	if alert.Status == domain.AlertStatusRead {
		return alert, nil
	}

	if err := s.store.Alerts.UpdateStatus(ctx, id, domain.AlertStatusRead, nil); err != nil {
		return nil, storageError(err)
	}
	alert.Status = domain.AlertStatusRead
	return alert, nil
}

// ListAlerts lists the alerts visible to the principal, newest first
func (s *AlertService) ListAlerts(ctx context.Context, p domain.Principal, page, limit int) (*ListAlertsOutput, error) {
	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	params := pagination.New(page, limit)
	alerts, total, err := s.store.Alerts.List(ctx, visibility.ScopeAlerts(p), params.Offset, params.Limit)
	if err != nil {
		return nil, storageError(err)
	}
	return &ListAlertsOutput{
		Alerts: alerts,
		Meta:   pagination.GetMeta(params, total),
	}, nil
}

// ProcessDueAlerts creates a reminder for every active case with money owed that has
// not been reminded in the last day. Overdue cases get a CRITICAL alert.
func (s *AlertService) ProcessDueAlerts(ctx context.Context, now time.Time) (int, error) {
	cases, err := s.store.Cases.ListActiveWithBalance(ctx)
	if err != nil {
		return 0, storageError(err)
	}

	created := 0
	for _, c := range cases {
		recent, err := s.store.Alerts.ExistsForCaseSince(ctx, c.ID, now.Add(-reminderInterval))
		if err != nil {
			s.log.Error("failed to check recent alerts", zap.Uint("case_id", c.ID), zap.Error(err))
			continue
		}
		if recent {
			continue
		}

		caseID := c.ID
		phone := c.BorrowerPhone
		alert := &models.Alert{
			TargetEmail:   c.BorrowerEmail,
			TargetPhone:   &phone,
			RelatedCaseID: &caseID,
			Title:         "Payment reminder",
			Message:       fmt.Sprintf("%s is still pending on your loan.", formatMoney(c.AmountPending)),
			Severity:      domain.AlertSeverityWarning,
			Status:        domain.AlertStatusPending,
			ScheduledFor:  now,
		}
		if c.DueDate != nil && c.DueDate.Before(now) {
			alert.Title = "Payment overdue"
			alert.Message = fmt.Sprintf("Your payment was due on %s. %s is still pending.",
				c.DueDate.Format("2006-01-02"), formatMoney(c.AmountPending))
			alert.Severity = domain.AlertSeverityCritical
		}
		alert.TargetUserID = s.lookupUserID(ctx, alert.TargetEmail)

		if err := s.store.Alerts.Create(ctx, alert); err != nil {
			s.log.Error("failed to store reminder", zap.Uint("case_id", c.ID), zap.Error(err))
			continue
		}
		created++
		s.deliverAsync(alert)
	}

	if created > 0 {
		s.log.Info("reminders created", zap.Int("count", created))
	}
	return created, nil
}

// SendPendingAlerts delivers PENDING alerts whose schedule passed more than a grace
// period ago, and returns how many were delivered
func (s *AlertService) SendPendingAlerts(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.Alerts.ListDue(ctx, now.Add(-dispatchGrace), dispatchBatch)
	if err != nil {
		return 0, storageError(err)
	}

	sent := 0
	for _, alert := range due {
		if s.deliver(ctx, alert) {
			sent++
		}
	}
	return sent, nil
}

// Wait blocks until background deliveries have finished
func (s *AlertService) Wait() {
	s.wg.Wait()
}

func (s *AlertService) deliverAsync(alert *models.Alert) {
	if s.sink == nil {
		return
	}
	a := *alert
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(context.Background(), &a)
	}()
}

// deliver sends one alert and records the outcome
func (s *AlertService) deliver(ctx context.Context, alert *models.Alert) bool {
	if s.sink == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	status := domain.AlertStatusSent
	var sentAt *time.Time
	if err := s.sink.Deliver(ctx, alert); err != nil {
		status = domain.AlertStatusFailed
		s.log.Warn("alert delivery failed",
			zap.Uint("alert_id", alert.ID),
			zap.String("target_email", alert.TargetEmail),
			zap.Error(err),
		)
	} else {
		now := time.Now().UTC()
		sentAt = &now
	}

	updated, err := s.store.Alerts.CompleteDelivery(ctx, alert.ID, status, sentAt)
	switch {
	case err != nil:
		s.log.Error("failed to update alert status", zap.Uint("alert_id", alert.ID), zap.Error(err))
	case !updated:
		s.log.Debug("alert left PENDING during delivery, keeping its status", zap.Uint("alert_id", alert.ID))
		return status == domain.AlertStatusSent
	}
	alert.Status = status
	alert.SentAt = sentAt
	return status == domain.AlertStatusSent
}

func (s *AlertService) lookupUserID(ctx context.Context, email string) *uint {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil
	}
	id := user.ID
	return &id
}
