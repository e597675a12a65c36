// Package events publishes build completion events to NATS JetStream so
// downstream systems (deploy triggers, dashboards) can react to finished
// packaging runs without polling the history database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/relpack/internal/pipeline"
)

// BuildEvent is the wire payload published per finished build.
type BuildEvent struct {
	BuildID   string                `json:"build_id"`
	Target    string                `json:"target"`
	Outcome   pipeline.BuildOutcome `json:"outcome"`
	Processed uint                  `json:"processed"`
	Failed    int                   `json:"failed"`
	Start     time.Time             `json:"start"`
	End       time.Time             `json:"end"`
	Timestamp time.Time             `json:"timestamp"`
}

// Publisher manages the NATS connection and publishes build events.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to NATS at url and prepares a JetStream context.
func NewPublisher(url, subject string) (*Publisher, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if subject == "" {
		subject = "relpack.builds"
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", url, "subject", subject)
	return &Publisher{conn: conn, js: js, subject: subject}, nil
}

// PublishReport publishes a finished build report as a BuildEvent.
func (p *Publisher) PublishReport(report *pipeline.BuildReport) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := BuildEvent{
		BuildID:   report.BuildID,
		Target:    report.Target,
		Outcome:   report.Outcome,
		Processed: report.Processed,
		Failed:    report.Failed,
		Start:     report.Start,
		End:       report.End,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}

	slog.Debug("Published build event", "build_id", event.BuildID, "outcome", string(event.Outcome))
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
