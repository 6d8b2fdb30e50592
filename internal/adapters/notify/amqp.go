package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"royal-collector/internal/adapters/persistence/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSink publishes alerts as persistent JSON messages on a durable queue.
// Downstream workers own the actual SMS or e-mail delivery.
type AMQPSink struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// alertMessage is the wire shape consumers read
type alertMessage struct {
	AlertID       uint      `json:"alert_id"`
	TargetEmail   string    `json:"target_email"`
	TargetPhone   *string   `json:"target_phone,omitempty"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Severity      string    `json:"severity"`
	RelatedCaseID *uint     `json:"related_case_id,omitempty"`
	ScheduledFor  time.Time `json:"scheduled_for"`
}

// NewAMQPSink dials the broker and declares the queue
func NewAMQPSink(url, queue string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &AMQPSink{conn: conn, ch: ch, queue: queue}, nil
}

// Name identifies the sink in logs
func (s *AMQPSink) Name() string {
	return "amqp"
}

// Deliver publishes one alert
func (s *AMQPSink) Deliver(ctx context.Context, alert *models.Alert) error {
	body, err := encodeAlert(alert)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("alert-%d", alert.ID),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Close closes the channel and the connection
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ch.Close(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}

func encodeAlert(alert *models.Alert) ([]byte, error) {
	return json.Marshal(alertMessage{
		AlertID:       alert.ID,
		TargetEmail:   alert.TargetEmail,
		TargetPhone:   alert.TargetPhone,
		Title:         alert.Title,
		Message:       alert.Message,
		Severity:      string(alert.Severity),
		RelatedCaseID: alert.RelatedCaseID,
		ScheduledFor:  alert.ScheduledFor,
	})
}
