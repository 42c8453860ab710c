package stowhub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryDelay(t *testing.T) {
	schedule := []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

	require.Equal(t, 2*time.Second, retryDelay(schedule, 0))
	require.Equal(t, 5*time.Second, retryDelay(schedule, 1))
	require.Equal(t, 10*time.Second, retryDelay(schedule, 2))

	// Attempts beyond the schedule reuse its last entry.
	require.Equal(t, 10*time.Second, retryDelay(schedule, 3))
	require.Equal(t, 10*time.Second, retryDelay(schedule, 100))

	require.Equal(t, time.Duration(0), retryDelay(nil, 0))
}

func TestDecodeFrame(t *testing.T) {
	now := time.Now()

	// A known kind with a message passes through.
	event := decodeFrame([]byte(`{"type":"create_storage","message":"hello"}`), now)
	require.Equal(t, FeedCreateStorage, event.Kind)
	require.Equal(t, "hello", event.Message)
	require.Equal(t, now, event.ReceivedAt)

	// A known kind without a message gets a derived one.
	event = decodeFrame([]byte(`{"type":"keeper_registration"}`), now)
	require.Equal(t, FeedKeeperRegistration, event.Kind)
	require.Equal(t, "A user asked to become a keeper", event.Message)

	// A payout request derives its message from the payload amount.
	event = decodeFrame([]byte(`{"type":"payout_request","payload":{"Amount":250000}}`), now)
	require.Equal(t, FeedPayoutRequest, event.Kind)
	require.Equal(t, "A keeper requested a payout of 250000", event.Message)

	// Without a usable payload, a plain message is used.
	event = decodeFrame([]byte(`{"type":"payout_request"}`), now)
	require.Equal(t, FeedPayoutRequest, event.Kind)
	require.Equal(t, "A keeper requested a payout", event.Message)

	// Unknown kinds degrade to generic.
	event = decodeFrame([]byte(`{"type":"something_new","message":"hi"}`), now)
	require.Equal(t, FeedGeneric, event.Kind)
	require.Equal(t, "hi", event.Message)

	// Unparseable frames degrade to generic with the raw data as payload.
	event = decodeFrame([]byte("not json"), now)
	require.Equal(t, FeedGeneric, event.Kind)
	require.Equal(t, "You have a new notification", event.Message)
	require.Equal(t, []byte("not json"), []byte(event.Payload))
}

func TestFeedURL(t *testing.T) {
	u, err := feedURL("https://api.stowhub.app")
	require.NoError(t, err)
	require.Equal(t, "wss://api.stowhub.app/core/v1/notifications/ws", u)

	u, err = feedURL("http://127.0.0.1:8080")
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:8080/core/v1/notifications/ws", u)
}
