package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisherWithWriter(w, zerolog.Nop())

	event := NewEvent(TypeConfirmation, "reservation-42", map[string]any{"reservation_id": 42})
	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "reservation-42", string(msg.Key))
	assert.Equal(t, event.ID, header(msg, "event-id"))
	assert.Equal(t, TypeConfirmation, header(msg, "event-type"))
	assert.Equal(t, "restaurant-booking", header(msg, "source"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, TypeConfirmation, decoded["event_type"])
	assert.EqualValues(t, 42, decoded["payload"].(map[string]any)["reservation_id"])
}

func TestKafkaPublisher_Errors(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewKafkaPublisherWithWriter(w, zerolog.Nop())

	err := p.Publish(context.Background(), NewEvent(TypeReminder, "k", nil))
	assert.ErrorContains(t, err, "broker down")

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), NewEvent(TypeReminder, "k", nil)), ErrPublisherClosed)
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "topic", zerolog.Nop())
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "", zerolog.Nop())
	assert.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "topic", zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(TypeDashboardChanged, "2026-10-20", nil)
	b := NewEvent(TypeDashboardChanged, "2026-10-20", nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.OccurredAt.IsZero())
}
