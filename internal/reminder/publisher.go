package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/mmynk/tabsplit/internal/models"
)

// Message is the wire format of a reminder handed to notification workers.
type Message struct {
	Type     string    `json:"type"`
	Key      string    `json:"key"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	GroupID  string    `json:"group_id"`
	BillID   string    `json:"bill_id"`
	MemberID string    `json:"member_id"`
	Amount   float64   `json:"amount"`
	SentAt   time.Time `json:"sent_at"`
}

// NewMessage wraps a reminder for publishing.
func NewMessage(r models.Reminder, at time.Time) Message {
	return Message{
		Type:     "payment_reminder",
		Key:      r.Key,
		Title:    r.Title,
		Body:     r.Body,
		GroupID:  r.GroupID,
		BillID:   r.BillID,
		MemberID: r.MemberID,
		Amount:   r.Amount,
		SentAt:   at.UTC(),
	}
}

// LogPublisher writes reminders to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that only logs.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, r models.Reminder) error {
	p.logger.InfoContext(ctx, "Payment reminder",
		"key", r.Key,
		"member_id", r.MemberID,
		"title", r.Title,
		"body", r.Body,
	)
	return nil
}

// AMQPPublisher publishes reminder messages to a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *slog.Logger
}

// NewAMQPPublisher dials the broker and declares the exchange, queue and binding.
func NewAMQPPublisher(url, exchangeName, queueName string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &AMQPPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}

	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return p, nil
}

func (p *AMQPPublisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = p.channel.QueueDeclare(
		p.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange
	if err := p.channel.QueueBind(p.queueName, p.queueName, p.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// Publish sends one reminder as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, r models.Reminder) error {
	now := time.Now()
	body, err := json.Marshal(NewMessage(r, now))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    now,
			MessageId:    r.Key + "@" + now.Format("2006-01-02"),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.DebugContext(ctx, "Published reminder message",
		"key", r.Key,
		"exchange", p.exchangeName,
		"queue", p.queueName,
	)
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
