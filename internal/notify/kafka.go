package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	EventStampAcquired = "stamp.acquired"
	EventCouponIssued  = "coupon.issued"
)

// notification is the wire payload; one topic, discriminated by Type.
type notification struct {
	SchemaVersion int        `json:"schema_version"`
	Type          string     `json:"type"`
	UserID        string     `json:"user_id"`
	EventName     string     `json:"event_name,omitempty"`
	CurrentCount  int        `json:"current_count,omitempty"`
	Remaining     int        `json:"remaining,omitempty"`
	Description   string     `json:"description,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// KafkaSink publishes notifications for a downstream delivery worker.
// Produce is async; delivery failures are logged and dropped.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	log    *logrus.Logger
}

func NewKafkaSink(brokers []string, clientID, topic string, log *logrus.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic, log: log}, nil
}

// EnsureTopic creates the notification topic if it does not exist yet.
func (s *KafkaSink) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	for _, detail := range resp {
		if detail.Err != nil && !strings.Contains(detail.Err.Error(), "already exists") {
			return fmt.Errorf("create topic %s: %w", detail.Topic, detail.Err)
		}
	}
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}

func (s *KafkaSink) NotifyStampAcquired(ctx context.Context, userID, eventName string, currentCount, remaining int) error {
	return s.produce(ctx, userID, notification{
		SchemaVersion: 1,
		Type:          EventStampAcquired,
		UserID:        userID,
		EventName:     eventName,
		CurrentCount:  currentCount,
		Remaining:     remaining,
		OccurredAt:    time.Now().UTC(),
	})
}

func (s *KafkaSink) NotifyCouponIssued(ctx context.Context, userID, description string, expiresAt time.Time) error {
	return s.produce(ctx, userID, notification{
		SchemaVersion: 1,
		Type:          EventCouponIssued,
		UserID:        userID,
		Description:   description,
		ExpiresAt:     &expiresAt,
		OccurredAt:    time.Now().UTC(),
	})
}

func (s *KafkaSink) produce(ctx context.Context, key string, payload notification) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(key),
		Value: value,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.log.WithError(err).WithField("type", payload.Type).
				Warn("notification publish failed")
		}
	})
	return nil
}
