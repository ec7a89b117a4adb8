// Package notify delivers "stamp acquired" and "coupon issued" events to
// users. Delivery is best-effort and strictly post-commit: a failed
// notification is logged, never propagated into the transaction that
// produced it.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sink receives loyalty events after the owning transaction committed.
type Sink interface {
	NotifyStampAcquired(ctx context.Context, userID, eventName string, currentCount, remaining int) error
	NotifyCouponIssued(ctx context.Context, userID, description string, expiresAt time.Time) error
}

// LogSink writes notifications to the structured log. It is the default
// sink and the fallback when the kafka sink is disabled.
type LogSink struct {
	log *logrus.Logger
}

func NewLogSink(log *logrus.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) NotifyStampAcquired(ctx context.Context, userID, eventName string, currentCount, remaining int) error {
	s.log.WithFields(logrus.Fields{
		"user_id":       userID,
		"event_name":    eventName,
		"current_count": currentCount,
		"remaining":     remaining,
	}).Info("stamp acquired")
	return nil
}

func (s *LogSink) NotifyCouponIssued(ctx context.Context, userID, description string, expiresAt time.Time) error {
	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"description": description,
		"expires_at":  expiresAt,
	}).Info("coupon issued")
	return nil
}
