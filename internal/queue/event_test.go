package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-api/internal/notify"
)

func TestEventRoundTripWireShape(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	body, err := encodeEvent(notify.Event{Kind: notify.KindWelcome, Email: "ann@example.com", Name: "Ann", OccurredAt: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"welcome","email":"ann@example.com","name":"Ann","occurred_at":"2024-03-01T12:00:00Z"}`, string(body))

	ev, err := decodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, notify.KindWelcome, ev.Kind)
	assert.True(t, at.Equal(ev.OccurredAt))
}

func TestDecodeEventRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":     `{`,
		"unknown kind": `{"kind":"promo","email":"a@b.c"}`,
		"no email":     `{"kind":"cancellation"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEvent([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestHandleDeliveryPassesEventToHandler(t *testing.T) {
	var got notify.Event
	h := func(_ context.Context, ev notify.Event) error {
		got = ev
		return nil
	}
	err := handleDelivery(context.Background(), []byte(`{"kind":"cancellation","email":"ann@example.com","name":"Ann"}`), h)
	require.NoError(t, err)
	assert.Equal(t, notify.KindCancellation, got.Kind)

	boom := errors.New("smtp down")
	err = handleDelivery(context.Background(), []byte(`{"kind":"welcome","email":"ann@example.com"}`),
		func(context.Context, notify.Event) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
