// Package processor provides the mail ingestion loop. It consumes inbound
// mail, runs it through the ingestion coordinator, and publishes and emails
// alerts for matched records.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"portal-sentinel/internal/events"
	"portal-sentinel/internal/extractor"
	"portal-sentinel/internal/ingest"
	"portal-sentinel/internal/metrics"
)

// MailSource reads inbound mail events.
type MailSource interface {
	ReadMessage(ctx context.Context) (*events.InboundMail, *kafkago.Message, error)
}

// Ingester runs one notification through parse, match, and persist.
type Ingester interface {
	Ingest(ctx context.Context, msg extractor.Message, receiveAddr string) (*ingest.Result, error)
}

// MatchPublisher publishes matched-record events.
type MatchPublisher interface {
	Publish(ctx context.Context, matched *events.RecordMatched) error
}

// AlertSender emails an alert for a matched record.
type AlertSender interface {
	Notify(ctx context.Context, matched *events.RecordMatched) error
}

// Processor orchestrates mail consumption, ingestion, and alerting.
type Processor struct {
	source      MailSource
	ingester    Ingester
	publisher   MatchPublisher
	alertSender AlertSender
	metrics     metrics.Recorder
}

// NewProcessor creates a new mail ingestion processor. A nil recorder
// defaults to the no-op recorder; publisher and alertSender may be nil when
// those outputs are disabled.
func NewProcessor(source MailSource, ingester Ingester, publisher MatchPublisher, alertSender AlertSender, recorder metrics.Recorder) *Processor {
	if recorder == nil {
		recorder = metrics.NoOp{}
	}
	return &Processor{
		source:      source,
		ingester:    ingester,
		publisher:   publisher,
		alertSender: alertSender,
		metrics:     recorder,
	}
}

// ProcessMail continuously reads inbound mail from Kafka and ingests it.
// Unrecognized mail is logged and skipped. Persistence failures are logged
// and the message is retried on redelivery (at-least-once).
func (p *Processor) ProcessMail(ctx context.Context) error {
	slog.Info("Starting mail processing loop")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Mail processing loop stopped")
			return nil
		default:
			mail, _, err := p.source.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("Failed to read inbound mail", "error", err)
				continue
			}

			p.metrics.RecordReceived()
			p.handleMail(ctx, mail)
		}
	}
}

func (p *Processor) handleMail(ctx context.Context, mail *events.InboundMail) {
	slog.Debug("Received inbound mail",
		"to", mail.To,
		"from", mail.From,
		"subject", mail.Subject,
	)

	started := time.Now()
	msg := extractor.Message{HTML: mail.HTML, Text: mail.Text}

	result, err := p.ingester.Ingest(ctx, msg, mail.To)
	if err != nil {
		if errors.Is(err, extractor.ErrNotRecognized) {
			slog.Info("Mail not recognized as a damage report, skipping",
				"to", mail.To,
				"from", mail.From,
				"subject", mail.Subject,
			)
			p.metrics.RecordUnrecognized()
			return
		}
		slog.Error("Failed to ingest mail",
			"to", mail.To,
			"from", mail.From,
			"error", err,
		)
		p.metrics.RecordError()
		return
	}

	p.metrics.RecordProcessed(time.Since(started))

	if len(result.Matched) == 0 {
		slog.Info("No rule sets matched record",
			"record_id", result.Record.ID,
			"portal", result.Record.PortalName,
		)
		return
	}

	matched := events.NewRecordMatched(result.Record, result.Event, result.Matched)

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, matched); err != nil {
			slog.Error("Failed to publish matched record",
				"record_id", matched.RecordID,
				"error", err,
			)
			p.metrics.RecordError()
		} else {
			p.metrics.RecordPublished()
		}
	}

	if p.alertSender != nil {
		// Alert failures never fail ingestion; the record is persisted.
		if err := p.alertSender.Notify(ctx, matched); err != nil {
			slog.Error("Failed to send alert",
				"record_id", matched.RecordID,
				"error", err,
			)
			p.metrics.RecordError()
		} else {
			p.metrics.RecordNotificationSent()
		}
	}
}
