package stowhub

import (
	"encoding/json"
	"fmt"
	"time"
)

// FeedEventKind names the kinds of staff notifications pushed by the API.
type FeedEventKind string

const (
	FeedKeeperRegistration FeedEventKind = "keeper_registration"
	FeedCreateStorage      FeedEventKind = "create_storage"
	FeedDeleteStorage      FeedEventKind = "delete_storage"
	FeedPayoutRequest      FeedEventKind = "payout_request"
	FeedGeneric            FeedEventKind = "generic"
)

// StaffGroup is the broadcast group every staff session joins on connect.
const StaffGroup = "staff"

// FeedEvent is a single staff notification delivered over the push channel.
type FeedEvent struct {
	Kind    FeedEventKind
	Message string

	// Payload is the kind-specific part of the frame, left undecoded.
	Payload json.RawMessage

	ReceivedAt time.Time
}

// FeedState is the connection state of the notification feed.
type FeedState int32

const (
	FeedDisconnected FeedState = iota
	FeedConnecting
	FeedConnected
	FeedReconnecting
)

func (s FeedState) String() string {
	switch s {
	case FeedDisconnected:
		return "disconnected"

	case FeedConnecting:
		return "connecting"

	case FeedConnected:
		return "connected"

	case FeedReconnecting:
		return "reconnecting"

	default:
		return "unknown"
	}
}

// FeedFrame is the wire shape of a server-pushed notification.
type FeedFrame struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FeedInvocation is the wire shape of a client-to-server group call.
type FeedInvocation struct {
	Action string `json:"action"`
	Group  string `json:"group"`
}

const (
	FeedActionJoin  = "join"
	FeedActionLeave = "leave"
)

// PayoutRequestPayload is the payload carried by payout-request notifications.
type PayoutRequestPayload struct {
	PayoutID string
	KeeperID string
	Amount   int64
}

// decodeFrame maps a raw inbound frame to a feed event. Frames that fail to
// parse, or whose type is unknown, degrade to a generic event rather than
// being dropped.
func decodeFrame(data []byte, now time.Time) FeedEvent {
	var frame FeedFrame

	if err := json.Unmarshal(data, &frame); err != nil {
		return FeedEvent{
			Kind:       FeedGeneric,
			Message:    "You have a new notification",
			Payload:    data,
			ReceivedAt: now,
		}
	}

	kind := FeedEventKind(frame.Type)

	switch kind {
	case FeedKeeperRegistration, FeedCreateStorage, FeedDeleteStorage, FeedPayoutRequest:
		// Known kind.

	default:
		kind = FeedGeneric
	}

	return FeedEvent{
		Kind:       kind,
		Message:    frameMessage(kind, frame),
		Payload:    frame.Payload,
		ReceivedAt: now,
	}
}

func frameMessage(kind FeedEventKind, frame FeedFrame) string {
	if frame.Message != "" {
		return frame.Message
	}

	switch kind {
	case FeedKeeperRegistration:
		return "A user asked to become a keeper"

	case FeedCreateStorage:
		return "A keeper asked to open a new storage"

	case FeedDeleteStorage:
		return "A keeper asked to close a storage"

	case FeedPayoutRequest:
		var payload PayoutRequestPayload

		if err := json.Unmarshal(frame.Payload, &payload); err == nil && payload.Amount > 0 {
			return fmt.Sprintf("A keeper requested a payout of %d", payload.Amount)
		}

		return "A keeper requested a payout"

	default:
		return "You have a new notification"
	}
}
