package mq

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"trailhead/models"
)

// Handler consumes one decoded event.
type Handler func(models.BookingEvent)

func dispatch(payload string, handle Handler, log *logrus.Logger) {
	var ev models.BookingEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.WithError(err).Warn("[BookingWorker] failed to parse event")
		return
	}
	if ev.UserID == "" {
		log.WithField("bookingId", ev.BookingID).Warn("[BookingWorker] event without user, dropped")
		return
	}
	handle(ev)
}

// StartBookingWorker subscribes to BookingChannel and hands every event to handle
// until ctx is cancelled.
func StartBookingWorker(ctx context.Context, client *redis.Client, log *logrus.Logger, handle Handler) {
	sub := client.Subscribe(ctx, BookingChannel)
	defer sub.Close()

	ch := sub.Channel()
	log.Info("[BookingWorker] listening for booking events")

	for {
		select {
		case <-ctx.Done():
			log.Info("[BookingWorker] stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			dispatch(msg.Payload, handle, log)
		}
	}
}
