package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"conflict-pipeline/internal/models"
)

// Publisher handles publishing step events to NATS
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *logrus.Logger
}

// Connect opens a NATS connection with reconnect logging
func Connect(url string, maxReconnect int, reconnectWait time.Duration, logger *logrus.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("conflict-pipeline"),
		nats.MaxReconnects(maxReconnect),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Infof("Connected to NATS at %s", url)
	return conn, nil
}

// NewPublisher creates a publisher on an open connection
func NewPublisher(conn *nats.Conn, subject string, logger *logrus.Logger) *Publisher {
	return &Publisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}
}

// Publish publishes a step event to "<subject>.<step>"
func (p *Publisher) Publish(event *models.StepEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.subject + "." + event.Step
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}

	p.logger.Debugf("Published %s event for step %s", event.Status, event.Step)
	return nil
}

// Close flushes pending events and closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Flush(); err != nil {
			p.logger.Warnf("NATS flush failed: %v", err)
		}
		p.conn.Close()
	}
}
