package session

import (
	"errors"
	"sort"
	"sync"

	"coderoom/internal/metrics"
	"coderoom/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// Departure describes one membership removed by Leave or Disconnect.
type Departure struct {
	RoomID    string
	User      models.User
	Remaining int
	Closed    bool // the room was deleted because it became empty
}

// Hub manages all active rooms and live connections. Lock order is hub
// before room.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	clients     map[string]*Client
	defaultLang models.Language
}

func NewHub(defaultLang models.Language) *Hub {
	if !defaultLang.Valid() {
		defaultLang = models.LangC
	}
	return &Hub{
		rooms:       make(map[string]*Room),
		clients:     make(map[string]*Client),
		defaultLang: defaultLang,
	}
}

// Register tracks a live connection until Disconnect, whether or not it
// ever joins a room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// Join creates the room on first use and adds the client to it. Holding the
// hub lock across both steps keeps a concurrent last-leave from deleting the
// room in between.
func (h *Hub) Join(roomID string, c *Client, username string) (room *Room, user models.User, created bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		room = NewRoom(roomID, h.defaultLang)
		h.rooms[roomID] = room
		created = true
		metrics.SetRooms(len(h.rooms))
	}
	user = room.Join(c, username)
	return room, user, created
}

// Leave removes the client from one room and deletes the room once empty.
func (h *Hub) Leave(roomID string, c *Client) (Departure, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return Departure{}, false
	}
	return h.leaveLocked(room, c)
}

// Disconnect scans every room and removes the client wherever it is a member.
func (h *Hub) Disconnect(c *Client) []Departure {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c.ID)

	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Departure
	for _, id := range ids {
		if d, ok := h.leaveLocked(h.rooms[id], c); ok {
			out = append(out, d)
		}
	}
	return out
}

func (h *Hub) leaveLocked(room *Room, c *Client) (Departure, bool) {
	user, remaining, ok := room.Leave(c)
	if !ok {
		return Departure{}, false
	}
	d := Departure{RoomID: room.ID, User: user, Remaining: remaining}
	if remaining == 0 {
		delete(h.rooms, room.ID)
		d.Closed = true
		metrics.SetRooms(len(h.rooms))
	}
	return d, true
}

func (h *Hub) Get(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

func (h *Hub) State(id string) (models.RoomState, error) {
	room, ok := h.Get(id)
	if !ok {
		return models.RoomState{}, ErrRoomNotFound
	}
	return room.State(), nil
}

// Rooms lists every room sorted by id.
func (h *Hub) Rooms() []models.RoomSummary {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	out := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// CloseAll closes every registered connection and room member, used on
// shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	seen := make(map[string]*Client, len(h.clients))
	for id, c := range h.clients {
		seen[id] = c
	}
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		for _, c := range r.clientsSnapshot() {
			seen[c.ID] = c
		}
	}
	for _, c := range seen {
		c.Close()
	}
}
