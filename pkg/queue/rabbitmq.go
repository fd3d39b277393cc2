package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"points-wallet/pkg/config"
	"points-wallet/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	WalletEventQueueName = "wallet_event_queue"
	WalletEventExchange  = "wallet_events"

	RoutingKeyCredited = "wallet.credited"
	RoutingKeyDebited  = "wallet.debited"
)

// WalletEvent is published after a balance mutation has been committed.
// Consumers (notifications, the operator console) must tolerate replays.
type WalletEvent struct {
	BusinessID   string    `json:"business_id"`
	Kind         string    `json:"kind"`
	Amount       int       `json:"amount"`
	BalanceAfter int       `json:"balance_after"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		WalletEventExchange, // name
		"topic",             // type
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		WalletEventQueueName, // name
		true,                 // durable
		false,                // delete when unused
		false,                // exclusive
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// One queue catches both credit and debit events
	err = channel.QueueBind(
		WalletEventQueueName,
		"wallet.*",
		WalletEventExchange,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// PublishWalletEvent publishes a committed balance mutation. The routing key
// is derived from the sign of the amount.
func (c *Client) PublishWalletEvent(event WalletEvent) error {
	routingKey := RoutingKeyCredited
	if event.Amount < 0 {
		routingKey = RoutingKeyDebited
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet event: %w", err)
	}

	err = c.channel.Publish(
		WalletEventExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish wallet event: %w", err)
	}

	return nil
}
