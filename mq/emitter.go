package mq

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"trailhead/metrics"
	"trailhead/models"
)

// BookingChannel carries every booking lifecycle event.
const BookingChannel = "booking-events"

// PubConn is the slice of the Redis client the emitter uses.
type PubConn interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Emitter publishes booking events to Redis so every instance can notify its own
// websocket clients.
type Emitter struct {
	conn PubConn
	log  *logrus.Logger
}

func NewEmitter(conn PubConn, log *logrus.Logger) *Emitter {
	return &Emitter{conn: conn, log: log}
}

// Emit never fails the caller; the booking write has already happened.
func (e *Emitter) Emit(ctx context.Context, ev models.BookingEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		metrics.PublishErrors.Inc()
		e.log.WithError(err).Error("[Emit] failed to marshal booking event")
		return
	}

	if err := e.conn.Publish(context.WithoutCancel(ctx), BookingChannel, data).Err(); err != nil {
		metrics.PublishErrors.Inc()
		e.log.WithError(err).WithField("type", ev.Type).Error("[Emit] failed to publish booking event")
		return
	}

	metrics.EventsPublished.Inc()
	e.log.WithFields(logrus.Fields{
		"type":      ev.Type,
		"bookingId": ev.BookingID,
	}).Debug("[Emit] booking event published")
}
