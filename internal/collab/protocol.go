package collab

import (
	"encoding/json"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
	"github.com/reportforge/designer/internal/interaction"
)

type Message struct {
	Type       string          `json:"type"`
	TemplateID string          `json:"templateId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Catch-up after a reconnect
	TypeSyncRequest = "sync.request"
	TypeSync        = "sync"

	// Element operations submitted directly by the client (create, delete,
	// visibility, lock) and every applied operation broadcast to the room.
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"

	// Pointer input, in screen coordinates plus the client's viewport.
	TypePointerDown   = "pointer.down"
	TypePointerMove   = "pointer.move"
	TypePointerUp     = "pointer.up"
	TypePointerCancel = "pointer.cancel"
	TypeSelectionSet  = "selection.set"

	// Engine feedback sent to the client owning the session.
	TypeSelection   = "selection"
	TypeCanvasClick = "canvas.click"
	TypeCursor      = "cursor"
	TypeState       = "state"
)

// PointerPayload is a pointer sample in screen space. The viewport fields
// describe how the client currently shows the canvas.
type PointerPayload struct {
	X         float64               `json:"x"`
	Y         float64               `json:"y"`
	Zoom      float64               `json:"zoom,omitempty"`
	PanX      float64               `json:"panX,omitempty"`
	PanY      float64               `json:"panY,omitempty"`
	Modifiers interaction.Modifiers `json:"modifiers"`
}

// Event converts the sample to canvas space.
func (p PointerPayload) Event() interaction.PointerEvent {
	screenToCanvas := geometry.Viewport(p.Zoom, p.PanX, p.PanY).Invert()
	return interaction.PointerEvent{
		Point:     screenToCanvas.Apply(geometry.Point{X: p.X, Y: p.Y}),
		Modifiers: p.Modifiers,
	}
}

type SelectionPayload struct {
	IDs []string `json:"ids"`
}

type CanvasClickPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CursorPayload struct {
	Cursor interaction.Cursor `json:"cursor"`
}

type WelcomePayload struct {
	ClientID  string        `json:"clientId"`
	SessionID string        `json:"sessionId"`
	Seq       int64         `json:"seq"`
	Elements  []element.Ref `json:"elements"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	UserID      string     `json:"userId,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceStatePayload maps client ids to their presence.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	OperationID string            `json:"operationId"`
	Operation   element.Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation element.Operation `json:"operation"`
	ServerSeq int64             `json:"serverSeq"`
}

type SyncRequestPayload struct {
	SinceSeq int64 `json:"sinceSeq"`
}

// SyncPayload answers a sync.request. When Reset is set the operation log no
// longer covers the requested range and Elements replaces the client's list.
type SyncPayload struct {
	Operations []element.Operation `json:"operations"`
	Elements   []element.Ref       `json:"elements,omitempty"`
	Reset      bool                `json:"reset,omitempty"`
	Seq        int64               `json:"seq"`
}

// newMessage marshals payload into a message of the given type.
func newMessage(msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Payload: data}, nil
}
