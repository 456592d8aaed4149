package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
)

// Channel identifies an event stream listeners subscribe to.
type Channel int

const (
	ChannelImage Channel = iota + 1
	ChannelExtrinsic
	ChannelIntrinsic
	ChannelTrackingState
	ChannelPerformanceInfo
	ChannelCommand
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelImage:
		return "image"
	case ChannelExtrinsic:
		return "extrinsic"
	case ChannelIntrinsic:
		return "intrinsic"
	case ChannelTrackingState:
		return "tracking_state"
	case ChannelPerformanceInfo:
		return "performance_info"
	case ChannelCommand:
		return "command"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Scope tags an event with the data it concerns. On a listener, empty
// fields act as wildcards.
type Scope struct {
	Node string
	Key  string
}

// Global matches every event of a channel.
func Global() Scope { return Scope{} }

// Named matches events for key under any node.
func Named(key string) Scope { return Scope{Key: key} }

// NodeData matches events for key under node only.
func NodeData(node, key string) Scope { return Scope{Node: node, Key: key} }

// Matches reports whether a listener registered with s receives an event
// tagged with e.
func (s Scope) Matches(e Scope) bool {
	return (s.Node == "" || s.Node == e.Node) && (s.Key == "" || s.Key == e.Key)
}

// String returns "node.key" with "*" for wildcards.
func (s Scope) String() string {
	node, key := s.Node, s.Key
	if node == "" {
		node = "*"
	}
	if key == "" {
		key = "*"
	}
	return node + "." + key
}

// Payload is the closed set of event payloads.
type Payload interface {
	Channel() Channel
}

// Image reports an updated image.
type Image struct {
	View dataset.ImageView
}

// Extrinsic reports an updated pose.
type Extrinsic struct {
	View dataset.ExtrinsicView
}

// Intrinsic reports an updated calibration.
type Intrinsic struct {
	View dataset.IntrinsicView
}

// ObjectState is the tracking state of one tracker.
type ObjectState struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// TrackingState reports the state of every tracker after a pass.
type TrackingState struct {
	Objects []ObjectState `json:"objects"`
}

// PerformanceInfo reports timing of the last pass. Error is set when the
// pass failed.
type PerformanceInfo struct {
	Tick          uint64        `json:"tick"`
	LastFrameTime time.Duration `json:"lastFrameTime"`
	Error         string        `json:"error,omitempty"`
}

// CommandCompleted carries the result of a command.
type CommandCompleted struct {
	Result command.Result
}

func (Image) Channel() Channel            { return ChannelImage }
func (Extrinsic) Channel() Channel        { return ChannelExtrinsic }
func (Intrinsic) Channel() Channel        { return ChannelIntrinsic }
func (TrackingState) Channel() Channel    { return ChannelTrackingState }
func (PerformanceInfo) Channel() Channel  { return ChannelPerformanceInfo }
func (CommandCompleted) Channel() Channel { return ChannelCommand }

// Event is one queued notification.
type Event struct {
	ID      string
	Scope   Scope
	Time    time.Time
	Payload Payload
}

// New creates an event with a fresh ID.
func New(scope Scope, p Payload) Event {
	return Event{ID: uuid.NewString(), Scope: scope, Time: time.Now(), Payload: p}
}

// Channel returns the channel of the payload.
func (e Event) Channel() Channel {
	if e.Payload == nil {
		return 0
	}
	return e.Payload.Channel()
}
