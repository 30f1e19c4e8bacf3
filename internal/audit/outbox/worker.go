// Package outbox publishes appended audit records to Kafka for downstream
// consumers (SIEM, compliance reporting).
//
// Durability of the audit trail rests on the Postgres append; this leg is
// at-least-once and decoupled from the request path via a buffered
// channel. A slow or unavailable broker never blocks a privileged
// procedure.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"tenantguard/internal/audit"
)

// Publisher drains the recorder's fan-out channel into a Kafka topic.
type Publisher struct {
	client *kgo.Client
	topic  string
	inbox  <-chan audit.Record
	logger *slog.Logger
}

func NewPublisher(client *kgo.Client, topic string, inbox <-chan audit.Record, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, topic: topic, inbox: inbox, logger: logger}
}

// EnsureTopic creates the audit topic if it does not exist. Safe to call
// on every startup.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

// payload is the wire shape published per record. Key is the tenant ID so
// per-tenant ordering is preserved within a partition.
type payload struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	ActorID   string            `json:"actor_id"`
	Procedure string            `json:"procedure"`
	Outcome   string            `json:"outcome"`
	Detail    map[string]string `json:"detail,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Run consumes records until the context is cancelled. Publish failures
// are logged and dropped; the durable copy already lives in Postgres.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record := <-p.inbox:
			p.publish(ctx, record)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, record audit.Record) {
	value, err := json.Marshal(payload{
		ID:        record.ID.String(),
		TenantID:  record.TenantID.String(),
		ActorID:   record.ActorID.String(),
		Procedure: record.Procedure,
		Outcome:   string(record.Outcome),
		Detail:    record.Detail,
		Timestamp: record.Timestamp,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal audit payload", "error", err)
		return
	}

	results := p.client.ProduceSync(ctx, &kgo.Record{
		Topic: p.topic,
		Key:   []byte(record.TenantID.String()),
		Value: value,
	})
	if err := results.FirstErr(); err != nil {
		p.logger.ErrorContext(ctx, "publish audit record",
			"record_id", record.ID.String(),
			"error", err,
		)
	}
}
