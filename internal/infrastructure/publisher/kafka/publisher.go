package kafka

import (
	"context"
	"fmt"
	"strconv"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReportEvent is the message value published for every report.
type ReportEvent struct {
	TakenAt       int64                  `json:"taken_at"`
	Total         decimal.Decimal        `json:"total"`
	PreviousTotal decimal.Decimal        `json:"previous_total"`
	Change        decimal.Decimal        `json:"change"`
	ChangePct     decimal.NullDecimal    `json:"change_pct"`
	Chains        []entity.ChainSubtotal `json:"chains"`
	Text          string                 `json:"text"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends report events to a Kafka topic.
type Publisher struct {
	writer messageWriter
}

var _ port.ReportSink = (*Publisher)(nil)

// NewPublisher creates a Publisher for topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// NewReportMessage builds the message for a report, keyed by its unix time.
func NewReportMessage(report *entity.Report) (kafka.Message, error) {
	event := ReportEvent{
		TakenAt:       report.TakenAt.Unix(),
		Total:         report.Total,
		PreviousTotal: report.PreviousTotal,
		Change:        report.Change,
		ChangePct:     report.ChangePct,
		Chains:        report.Chains,
		Text:          report.Text,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal report event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(event.TakenAt, 10)),
		Value: data,
	}, nil
}

// Publish implements port.ReportSink.
func (p *Publisher) Publish(ctx context.Context, report *entity.Report) error {
	msg, err := NewReportMessage(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report event: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
