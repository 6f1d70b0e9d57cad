package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-library/internal/config"
	"ms-library/internal/logger"
	"ms-library/internal/models"
)

// Producer publishes reservation and penalty events on their own
// topics. In mock mode the events are logged and dropped, so the
// service runs without a broker.
type Producer struct {
	reservations *kafka.Writer
	penalties    *kafka.Writer
	logger       *logger.Logger
	mockMode     bool
}

func NewProducer(cfg config.KafkaConfig, log *logger.Logger) *Producer {
	p := &Producer{logger: log, mockMode: cfg.MockMode}
	if cfg.MockMode {
		log.Warn("KAFKA", "mock mode enabled, events will be logged and dropped")
		return p
	}

	p.reservations = kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topics.ReservationEvents,
	})
	p.penalties = kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topics.PenaltyEvents,
	})
	return p
}

// PublishReservationEvent streams a book or table lifecycle event.
func (p *Producer) PublishReservationEvent(event models.ReservationEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.logger.LogKafka("publishing", fmt.Sprintf("%s/%s", event.Kind, event.Action), string(msgBytes))
	if p.mockMode {
		return nil
	}

	return p.reservations.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.ReservationID),
			Value: msgBytes,
		},
	)
}

// PublishPenaltyEvent streams a penalty ledger event.
func (p *Producer) PublishPenaltyEvent(event models.PenaltyEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.logger.LogKafka("publishing", "penalty", string(msgBytes))
	if p.mockMode {
		return nil
	}

	return p.penalties.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.UserID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	if p.mockMode {
		return nil
	}
	if err := p.reservations.Close(); err != nil {
		return err
	}
	return p.penalties.Close()
}
