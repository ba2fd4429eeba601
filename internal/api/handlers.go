package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"coderoom/internal/config"
	"coderoom/internal/events"
	"coderoom/internal/metrics"
	"coderoom/internal/models"
	"coderoom/internal/session"
	"coderoom/internal/utils"
)

const (
	defaultUsername = "anonymous"
	publishTimeout  = 2 * time.Second
)

type Handlers struct {
	log      *utils.Logger
	cfg      *config.Config
	hub      *session.Hub
	events   *events.AsyncPublisher
	upgrader websocket.Upgrader
}

// NewHandlers takes ownership of publisher: lifecycle events are queued and
// published off the read loop, and Close closes it.
func NewHandlers(log *utils.Logger, cfg *config.Config, hub *session.Hub, publisher events.Publisher) *Handlers {
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &Handlers{
		log:    log,
		cfg:    cfg,
		hub:    hub,
		events: events.NewAsyncPublisher(publisher, log, cfg.EventsBuffer, publishTimeout),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// Close flushes queued lifecycle events and closes the publisher.
func (h *Handlers) Close() error {
	return h.events.Close()
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) ListLanguages(w http.ResponseWriter, _ *http.Request) {
	utils.JSON(w, http.StatusOK, models.Languages)
}

func (h *Handlers) ListRooms(w http.ResponseWriter, _ *http.Request) {
	utils.JSON(w, http.StatusOK, h.hub.Rooms())
}

func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utils.JSONError(w, http.StatusBadRequest, "room id required")
		return
	}
	state, err := h.hub.State(id)
	if errors.Is(err, session.ErrRoomNotFound) {
		utils.JSONError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, state)
}

/*** Relay WebSocket: one connection, any number of rooms ***/
func (h *Handlers) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := session.NewClient(conn, h.cfg.SendBuffer)
	h.hub.Register(client)
	log := h.log.With("conn", client.ID)
	metrics.IncConnections()
	log.Info("client connected", "remote", r.RemoteAddr)

	go client.WritePump(h.cfg.PingInterval, h.cfg.WriteTimeout)
	defer func() {
		h.disconnect(client, log)
		client.Close()
		metrics.DecConnections()
		log.Info("client disconnected")
	}()

	readWait := 2 * h.cfg.PingInterval
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(readWait)) })

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Warn("websocket read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		h.dispatch(client, msg, log)
	}
}

func (h *Handlers) dispatch(client *session.Client, msg []byte, log *utils.Logger) {
	var frame models.WSFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		metrics.ObserveEvent("invalid")
		sendError(client, "invalid message")
		return
	}

	switch frame.Type {
	case models.EventJoinRoom:
		var p models.JoinRoom
		if !decode(client, frame, &p) {
			return
		}
		h.joinRoom(client, p, log)

	case models.EventCodeChange:
		var p models.CodeChange
		if !decode(client, frame, &p) {
			return
		}
		h.applyChange(client, p.RoomID, session.FieldCode, p.Code)

	case models.EventLanguageChange:
		var p models.LanguageChange
		if !decode(client, frame, &p) {
			return
		}
		lang := models.Language(utils.NormalizeLanguage(string(p.Language)))
		if !lang.Valid() {
			sendError(client, "unsupported language: "+string(p.Language))
			return
		}
		h.applyChange(client, p.RoomID, session.FieldLanguage, string(lang))

	case models.EventInputChange:
		var p models.InputChange
		if !decode(client, frame, &p) {
			return
		}
		h.applyChange(client, p.RoomID, session.FieldInput, p.Input)

	case models.EventOutputChange:
		var p models.OutputChange
		if !decode(client, frame, &p) {
			return
		}
		h.applyChange(client, p.RoomID, session.FieldOutput, p.Output)

	case models.EventLeaveRoom:
		var p models.LeaveRoom
		if !decode(client, frame, &p) {
			return
		}
		if d, ok := h.hub.Leave(roomKey(p.RoomID), client); ok {
			log.Info("user left room", "room", d.RoomID, "username", d.User.Username)
			h.publishDeparture(client, d, log)
		}

	default:
		metrics.ObserveEvent("unknown")
		sendError(client, "unknown event: "+frame.Type)
		return
	}
	metrics.ObserveEvent(frame.Type)
}

func (h *Handlers) joinRoom(client *session.Client, p models.JoinRoom, log *utils.Logger) {
	roomID := roomKey(p.RoomID)
	if roomID == "" {
		sendError(client, "roomId required")
		return
	}
	username := strings.TrimSpace(p.Username)
	if username == "" {
		username = defaultUsername
	}

	room, user, created := h.hub.Join(roomID, client, username)
	count := room.UserCount()
	log.Info("user joined room", "room", roomID, "username", username, "users", count)

	if created {
		h.publish(models.RoomEvent{Type: models.RoomCreated, RoomID: roomID, UserCount: count}, log)
	}
	h.publish(models.RoomEvent{
		Type:         models.UserJoined,
		RoomID:       roomID,
		ConnectionID: user.ID,
		Username:     user.Username,
		UserCount:    count,
	}, log)
}

// applyChange ignores unknown rooms and rooms the sender has not joined.
func (h *Handlers) applyChange(client *session.Client, roomID string, field session.Field, value string) {
	room, ok := h.hub.Get(roomKey(roomID))
	if !ok {
		return
	}
	room.Apply(client, field, value)
}

// roomKey is the registry key for a client-supplied room id. Every event
// resolves rooms through it.
func roomKey(id string) string {
	return strings.TrimSpace(id)
}

func (h *Handlers) disconnect(client *session.Client, log *utils.Logger) {
	for _, d := range h.hub.Disconnect(client) {
		log.Info("user left room on disconnect", "room", d.RoomID, "username", d.User.Username)
		h.publishDeparture(client, d, log)
	}
}

func (h *Handlers) publishDeparture(client *session.Client, d session.Departure, log *utils.Logger) {
	h.publish(models.RoomEvent{
		Type:         models.UserLeft,
		RoomID:       d.RoomID,
		ConnectionID: client.ID,
		Username:     d.User.Username,
		UserCount:    d.Remaining,
	}, log)
	if d.Closed {
		h.publish(models.RoomEvent{Type: models.RoomClosed, RoomID: d.RoomID}, log)
	}
}

// publish only enqueues; lifecycle notifications are best effort.
func (h *Handlers) publish(event models.RoomEvent, log *utils.Logger) {
	if err := h.events.Publish(context.Background(), event); err != nil {
		log.Warn("room event dropped", "type", event.Type, "room", event.RoomID, "error", err)
	}
}

func decode(client *session.Client, frame models.WSFrame, out any) bool {
	if err := marshal(frame.Data, out); err != nil {
		sendError(client, "invalid payload for "+frame.Type)
		return false
	}
	return true
}

func marshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func sendError(client *session.Client, msg string) {
	client.Send(models.WSFrame{Type: models.EventErrorMessage, Data: models.ErrorMessage{Message: msg}})
}
