// Package events publishes an audit record to NATS JetStream for every side
// effect the dispatcher executes. Publishing is best-effort: a nil or
// disconnected publisher never blocks or fails a chat turn.
package events

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	// StreamName is the name of the action audit stream.
	StreamName = "ACTIONS"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "actions"
)

// ActionType classifies an executed side effect.
type ActionType string

const (
	ActionEventCreated ActionType = "calendar.event_created"
	ActionEmailSent    ActionType = "mail.email_sent"
)

// ActionEvent is one audit record.
type ActionEvent struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	Type           ActionType `json:"type"`
	ProviderID     string     `json:"provider_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Config holds NATS connection configuration.
type Config struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// Publisher wraps a NATS connection and JetStream context.
type Publisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *zap.Logger
}

// Connect establishes a connection to the NATS server and ensures the audit
// stream exists.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{
		conn:   nc,
		js:     js,
		logger: log,
	}

	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Audit trail of side effects dispatched from assistant turns",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Publish writes one audit record. Failures are logged and discarded; the
// audit trail must never gate the side effect it records. Safe on a nil
// publisher so dispatch works with auditing disabled.
func (p *Publisher) Publish(ctx context.Context, ev *ActionEvent) {
	if p == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("failed to marshal action event", zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.%s", SubjectPrefix, ev.Type)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.logger.Warn("failed to publish action event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
