package observerproto

import "actorcraft.ai/internal/sim/actor"

// Version is the observer protocol version.
const Version = "1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTick      = "TICK"
)

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Optional: restrict the stream to these actor ids.
	ActorIDs []int32 `json:"actor_ids,omitempty"`
	// Optional: send every Nth tick only.
	Every    int     `json:"every,omitempty"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	FrameMillis     int64        `json:"frame_ms"`
	Actors          []actor.Pose `json:"actors"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Actors          []actor.Pose `json:"actors"`
}
