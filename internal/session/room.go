package session

import (
	"sync"

	"coderoom/internal/models"
)

// Field names one mutable part of the shared document.
type Field int

const (
	FieldCode Field = iota
	FieldLanguage
	FieldInput
	FieldOutput
)

func (f Field) updateEvent() string {
	switch f {
	case FieldCode:
		return models.EventCodeUpdate
	case FieldLanguage:
		return models.EventLanguageUpdate
	case FieldInput:
		return models.EventInputUpdate
	default:
		return models.EventOutputUpdate
	}
}

// Room holds the shared document and its members. Every mutation fans out
// while the lock is held so all members observe the same order.
type Room struct {
	ID      string
	mu      sync.Mutex
	users   []models.User
	clients map[string]*Client
	doc     models.DocState
}

func NewRoom(id string, language models.Language) *Room {
	return &Room{
		ID:      id,
		clients: make(map[string]*Client),
		doc:     models.DocState{Language: language},
	}
}

// Join adds the client as a user and announces it: the joiner receives the
// current document, others a userJoined, and everyone the member list. A
// repeated join from the same connection only updates the username.
func (r *Room) Join(c *Client, username string) models.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := models.User{ID: c.ID, Username: username}
	if idx := r.indexLocked(c.ID); idx >= 0 {
		r.users[idx].Username = username
	} else {
		r.users = append(r.users, user)
		r.clients[c.ID] = c
		r.broadcastLocked(c, models.WSFrame{Type: models.EventUserJoined, Data: models.UserEvent{Username: username}})
	}
	c.Send(models.WSFrame{Type: models.EventSyncState, Data: r.doc})
	r.broadcastAllLocked(models.WSFrame{Type: models.EventRoomUsers, Data: r.usersLocked()})
	return user
}

// Leave removes the client and tells the remaining members. It returns the
// departed user and how many users remain.
func (r *Room) Leave(c *Client) (models.User, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(c.ID)
	if idx < 0 {
		return models.User{}, len(r.users), false
	}
	user := r.users[idx]
	r.users = append(r.users[:idx], r.users[idx+1:]...)
	delete(r.clients, c.ID)

	if len(r.users) > 0 {
		r.broadcastAllLocked(models.WSFrame{Type: models.EventUserLeft, Data: models.UserEvent{Username: user.Username}})
		r.broadcastAllLocked(models.WSFrame{Type: models.EventRoomUsers, Data: r.usersLocked()})
	}
	return user, len(r.users), true
}

// Apply sets one field (last write wins), sends the raw value to the other
// members and the full document to everyone. Non-members are ignored.
func (r *Room) Apply(sender *Client, field Field, value string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[sender.ID]; !ok {
		return false
	}
	switch field {
	case FieldCode:
		r.doc.Code = value
	case FieldLanguage:
		r.doc.Language = models.Language(value)
	case FieldInput:
		r.doc.Input = value
	case FieldOutput:
		r.doc.Output = value
	}
	r.broadcastLocked(sender, models.WSFrame{Type: field.updateEvent(), Data: value})
	r.broadcastAllLocked(models.WSFrame{Type: models.EventSyncState, Data: r.doc})
	return true
}

func (r *Room) Has(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[c.ID]
	return ok
}

func (r *Room) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *Room) Users() []models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usersLocked()
}

func (r *Room) Snapshot() models.DocState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

func (r *Room) State() models.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RoomState{
		RoomID:   r.ID,
		Users:    r.usersLocked(),
		Code:     r.doc.Code,
		Language: r.doc.Language,
		Input:    r.doc.Input,
		Output:   r.doc.Output,
	}
}

func (r *Room) Summary() models.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RoomSummary{RoomID: r.ID, UserCount: len(r.users), Language: r.doc.Language}
}

// Broadcast sends to every member except sender.
func (r *Room) Broadcast(sender *Client, frame models.WSFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(sender, frame)
}

func (r *Room) BroadcastAll(frame models.WSFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastAllLocked(frame)
}

func (r *Room) clientsSnapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// members are visited in join order so fan-out is deterministic.
func (r *Room) broadcastLocked(sender *Client, frame models.WSFrame) {
	for _, u := range r.users {
		if sender != nil && u.ID == sender.ID {
			continue
		}
		r.clients[u.ID].Send(frame)
	}
}

func (r *Room) broadcastAllLocked(frame models.WSFrame) {
	r.broadcastLocked(nil, frame)
}

func (r *Room) indexLocked(id string) int {
	for i, u := range r.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (r *Room) usersLocked() []models.User {
	out := make([]models.User, len(r.users))
	copy(out, r.users)
	return out
}
