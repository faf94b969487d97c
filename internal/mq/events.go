package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/eduadmin/apiserver/internal/logger"
	"github.com/eduadmin/apiserver/types"
	"github.com/rs/zerolog"
)

const (
	attrEventType = "event_type"
	attrStudentID = "student_id"
)

// StudentEvents publishes student lifecycle events on one channel.
type StudentEvents struct {
	backend Backend
	channel string
	log     zerolog.Logger
}

func NewStudentEvents(backend Backend, channel string) *StudentEvents {
	return &StudentEvents{
		backend: backend,
		channel: channel,
		log:     logger.With("mq"),
	}
}

// PublishStudentEvent never fails the caller; broker errors are logged.
func (e *StudentEvents) PublishStudentEvent(ctx context.Context, event types.StudentEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		e.log.Error().Err(err).Str("event_type", event.Type).Msg("encode student event")
		return
	}

	attrs := map[string]string{
		attrEventType: event.Type,
		attrStudentID: strconv.Itoa(event.StudentID),
	}
	id, err := e.backend.Publish(ctx, e.channel, data, attrs)
	if err != nil {
		e.log.Warn().Err(err).
			Str("event_type", event.Type).
			Int("student_id", event.StudentID).
			Msg("publish student event failed")
		return
	}
	e.log.Debug().Str("message_id", id).Str("event_type", event.Type).Msg("student event published")
}

// Subscribe decodes every message on the channel and hands it to fn.
// Undecodable messages are logged and acknowledged.
func (e *StudentEvents) Subscribe(ctx context.Context, fn func(ctx context.Context, event types.StudentEvent) error) error {
	return e.backend.Subscribe(ctx, e.channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeStudentEvent(msg)
		if err != nil {
			e.log.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed student event")
			return nil
		}
		return fn(ctx, event)
	})
}

func DecodeStudentEvent(msg Message) (types.StudentEvent, error) {
	var event types.StudentEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.StudentEvent{}, fmt.Errorf("decode student event: %w", err)
	}
	if event.Type == "" {
		event.Type = msg.Attributes[attrEventType]
	}
	if event.Type == "" || event.StudentID < 1 {
		return types.StudentEvent{}, fmt.Errorf("decode student event: missing type or student id")
	}
	return event, nil
}
