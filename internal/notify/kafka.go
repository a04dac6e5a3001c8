package notify

import (
	"context"
	"fmt"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/pkg/kafka"
	"wisetrade/pkg/logger"
)

// adviceEvent is the wire shape published for each recommendation.
type adviceEvent struct {
	Ticker      string  `json:"ticker"`
	Action      string  `json:"action"`
	Confidence  float64 `json:"confidence"`
	Rationale   string  `json:"rationale"`
	Synthesizer string  `json:"synthesizer"`
	CreatedAt   string  `json:"created_at"`
}

// KafkaNotifier publishes actionable advice as events, keyed by ticker so
// per-instrument ordering survives partitioning.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

func NewKafkaNotifier(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaNotifier {
	if topic == "" {
		topic = "wisetrade.advice"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaNotifier{producer: producer, topic: topic, log: log}
}

func (n *KafkaNotifier) Name() string { return "kafka" }

func (n *KafkaNotifier) Notify(ctx context.Context, advice []*models.Advice) error {
	if len(advice) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(advice))
	for _, a := range advice {
		msgs = append(msgs, kafka.Message{
			Key: []byte(a.Ticker),
			Value: adviceEvent{
				Ticker:      a.Ticker,
				Action:      string(a.Action),
				Confidence:  a.Confidence,
				Rationale:   a.Rationale,
				Synthesizer: a.Synthesizer,
				CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
			},
		})
	}

	if err := n.producer.PublishBatch(ctx, n.topic, msgs); err != nil {
		return fmt.Errorf("publish advice events: %w", err)
	}
	n.log.Info("advice events published",
		logger.String("topic", n.topic),
		logger.Int("count", len(msgs)),
	)
	return nil
}
