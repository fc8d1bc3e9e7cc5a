package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/typeid"
)

const (
	defaultFlushInterval = 5 * time.Second
	storeTimeout         = 10 * time.Second
)

// Loader reads a template's elements when its room opens.
type Loader func(ctx context.Context, templateID string) ([]element.Ref, error)

// Saver persists a template's elements.
type Saver func(ctx context.Context, templateID string, elements []element.Ref) error

type Room struct {
	templateID  string
	store       *element.Store
	clients     map[string]*Client // clientID -> client
	presence    *PresenceManager
	unsubscribe func()
}

func NewRoom(templateID string, elements []element.Ref, opts ...element.StoreOption) *Room {
	return &Room{
		templateID: templateID,
		store:      element.NewStore(elements, opts...),
		clients:    make(map[string]*Client),
		presence:   NewPresenceManager(),
	}
}

// Hub owns one room per open template. Register, unregister, periodic flushes
// and shutdown are serialized on the Run goroutine.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // templateID -> room
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once

	loader        Loader
	saver         Saver
	sessionCfg    SessionConfig
	flushInterval time.Duration
	opLogLimit    int
}

type HubOption func(*Hub)

func WithSessionConfig(cfg SessionConfig) HubOption {
	return func(h *Hub) { h.sessionCfg = cfg }
}

// WithFlushInterval sets how often changed templates are saved.
func WithFlushInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.flushInterval = d
		}
	}
}

// WithOpLogLimit bounds how many operations each room keeps for sync
// requests.
func WithOpLogLimit(n int) HubOption {
	return func(h *Hub) { h.opLogLimit = n }
}

func NewHub(loader Loader, saver Saver, opts ...HubOption) *Hub {
	h := &Hub{
		rooms:         make(map[string]*Room),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		loader:        loader,
		saver:         saver,
		flushInterval: defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.flushAll()
		case <-h.stop:
			h.shutdown()
			return
		}
	}
}

// Stop closes every session, saves all changed templates and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.sendError("server shutting down")
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) openRoom(templateID string) (*Room, error) {
	h.mu.RLock()
	room, ok := h.rooms[templateID]
	h.mu.RUnlock()
	if ok {
		return room, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	elements, err := h.loader(ctx, templateID)
	if err != nil {
		return nil, err
	}

	room = NewRoom(templateID, elements, element.WithLogLimit(h.opLogLimit))
	room.unsubscribe = room.store.Subscribe(func(op element.Operation, seq int64) {
		h.broadcastOp(templateID, op, seq)
	})

	h.mu.Lock()
	h.rooms[templateID] = room
	h.mu.Unlock()

	slog.Info("room opened", "template", templateID, "elements", len(elements))
	return room, nil
}

func (h *Hub) addClient(client *Client) {
	room, err := h.openRoom(client.TemplateID)
	if err != nil {
		slog.Error("load template", "template", client.TemplateID, "error", err)
		client.sendError("could not load template")
		client.close()
		return
	}

	sess := NewSession(client, room.store, h.sessionCfg, func(ids []string) {
		h.updateSelection(client, ids)
	})
	client.session.Store(sess)

	room.presence.Update(client.ClientID, func(p *PresencePayload) {
		p.UserID = client.UserID
		p.DisplayName = client.DisplayName
	})

	// Snapshot and membership change under one lock so no broadcast falls
	// between the welcome and the first op.broadcast.
	h.mu.Lock()
	elements, seq := room.store.Snapshot()
	welcome, err := newMessage(TypeWelcome, WelcomePayload{
		ClientID:  client.ClientID,
		SessionID: sess.ID,
		Seq:       seq,
		Elements:  elements,
	})
	if err == nil {
		welcome.Seq = seq
		client.Send(welcome)
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	h.broadcastToRoom(client.TemplateID, &Message{
		Type:     TypePresenceJoin,
		UserID:   client.UserID,
		ClientID: client.ClientID,
		Payload:  joinPayload,
	}, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "template", client.TemplateID, "session", sess.ID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.TemplateID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		client.close()
		return
	}

	delete(room.clients, client.ClientID)
	room.presence.Remove(client.ClientID)
	emptied := len(room.clients) == 0
	if emptied {
		delete(h.rooms, client.TemplateID)
	}
	h.mu.Unlock()

	// Closing the session lets a cancelled gesture commit its revert before
	// the room is flushed.
	if sess := client.session.Swap(nil); sess != nil {
		sess.Close()
	}
	client.close()

	if emptied {
		room.unsubscribe()
		h.flushRoom(room)
		slog.Info("room closed", "template", room.templateID)
	} else {
		leavePayload, _ := json.Marshal(PresenceLeavePayload{UserID: client.UserID})
		h.broadcastToRoom(client.TemplateID, &Message{
			Type:     TypePresenceLeave,
			UserID:   client.UserID,
			ClientID: client.ClientID,
			Payload:  leavePayload,
		}, "")
	}

	slog.Info("client left", "user", client.UserID, "template", client.TemplateID)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for _, room := range rooms {
		for _, c := range room.clients {
			if sess := c.session.Swap(nil); sess != nil {
				sess.Close()
			}
			c.close()
		}
		room.unsubscribe()
		h.flushRoom(room)
	}
	slog.Info("hub stopped", "rooms", len(rooms))
}

func (h *Hub) flushAll() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	for _, room := range rooms {
		h.flushRoom(room)
	}
}

func (h *Hub) flushRoom(room *Room) {
	elements, dirty := room.store.TakeDirty()
	if !dirty {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.saver(ctx, room.templateID, elements); err != nil {
		slog.Error("save template", "template", room.templateID, "error", err)
		room.store.MarkDirty()
		return
	}
	slog.Debug("template saved", "template", room.templateID, "elements", len(elements))
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	h.mu.RLock()
	room, ok := h.rooms[sender.TemplateID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(room, sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(room, sender, msg)
	case TypeSyncRequest:
		h.handleSyncRequest(room, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handlePresenceUpdate(room *Room, sender *Client, msg *Message) {
	var in PresencePayload
	if err := json.Unmarshal(msg.Payload, &in); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence := room.presence.Update(sender.ClientID, func(p *PresencePayload) {
		p.Cursor = in.Cursor
		p.UserID = sender.UserID
		p.DisplayName = sender.DisplayName
	})
	h.broadcastPresence(sender, presence)
}

func (h *Hub) updateSelection(client *Client, ids []string) {
	h.mu.RLock()
	room, ok := h.rooms[client.TemplateID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	presence := room.presence.Update(client.ClientID, func(p *PresencePayload) {
		p.Selection = slices.Clone(ids)
	})
	h.broadcastPresence(client, presence)
}

func (h *Hub) broadcastPresence(sender *Client, presence PresencePayload) {
	payload, err := json.Marshal(presence)
	if err != nil {
		slog.Error("marshal presence", "error", err)
		return
	}
	h.broadcastToRoom(sender.TemplateID, &Message{
		Type:     TypePresenceUpdate,
		UserID:   sender.UserID,
		ClientID: sender.ClientID,
		Payload:  payload,
	}, sender.ClientID)
}

func (h *Hub) handleOpSubmit(room *Room, sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		h.nack(sender, "", "invalid payload")
		return
	}

	op := submit.Operation
	if op.Type == element.OpCreate && op.Element != nil && op.Element.ID == "" {
		el := *op.Element
		el.ID = typeid.NewElementID()
		op.Element = &el
	}

	seq, err := room.store.Apply(op)
	if err != nil {
		slog.Debug("operation rejected", "type", op.Type, "error", err, "user", sender.UserID)
		h.nack(sender, submit.OperationID, err.Error())
		return
	}

	ack, err := newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     submit.OperationID,
		ServerSeq:       seq,
		ServerTimestamp: time.Now().UnixMilli(),
	})
	if err == nil {
		ack.Seq = seq
		sender.Send(ack)
	}
}

func (h *Hub) nack(sender *Client, operationID, reason string) {
	msg, err := newMessage(TypeOpNack, OperationNackPayload{OperationID: operationID, Reason: reason})
	if err != nil {
		return
	}
	sender.Send(msg)
}

func (h *Hub) handleSyncRequest(room *Room, sender *Client, msg *Message) {
	var req SyncRequestPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Warn("invalid sync payload", "error", err)
		return
	}
	if req.SinceSeq < 0 {
		req.SinceSeq = 0
	}

	changes := room.store.ChangesSince(req.SinceSeq)
	payload := SyncPayload{Operations: changes.Ops, Seq: changes.Seq}
	if changes.Reset() {
		payload.Reset = true
		payload.Elements = changes.Elements
		slog.Info("sync fell behind op log, sending snapshot",
			"template", room.templateID, "client", sender.ClientID, "since", req.SinceSeq)
	}
	if payload.Operations == nil {
		payload.Operations = []element.Operation{}
	}
	reply, err := newMessage(TypeSync, payload)
	if err != nil {
		return
	}
	reply.Seq = changes.Seq
	sender.Send(reply)
}

func (h *Hub) broadcastOp(templateID string, op element.Operation, seq int64) {
	msg, err := newMessage(TypeOpBroadcast, OperationBroadcastPayload{Operation: op, ServerSeq: seq})
	if err != nil {
		slog.Error("marshal broadcast", "error", err)
		return
	}
	msg.Seq = seq
	h.broadcastToRoom(templateID, msg, "")
}

func (h *Hub) broadcastToRoom(templateID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[templateID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
