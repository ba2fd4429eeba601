package models

import "time"

type Language string

const (
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangJava       Language = "java"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangGo         Language = "go"
)

// Languages lists every language a room may select, in display order.
var Languages = []Language{LangC, LangCPP, LangJava, LangPython, LangJavaScript, LangGo}

func (l Language) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}
	return false
}

/*** Room state ***/
type User struct {
	ID       string `json:"id"` // connection id
	Username string `json:"username"`
}

type RoomState struct {
	RoomID   string   `json:"roomId"`
	Users    []User   `json:"users"`
	Code     string   `json:"code"`
	Language Language `json:"language"`
	Input    string   `json:"input"`
	Output   string   `json:"output"`
}

// DocState is the shared document without membership, sent as syncState.
type DocState struct {
	Code     string   `json:"code"`
	Language Language `json:"language"`
	Input    string   `json:"input"`
	Output   string   `json:"output"`
}

type RoomSummary struct {
	RoomID    string   `json:"roomId"`
	UserCount int      `json:"userCount"`
	Language  Language `json:"language"`
}

/*** WebSocket protocol ***/
type WSFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Inbound frame types.
const (
	EventJoinRoom       = "joinRoom"
	EventCodeChange     = "codeChange"
	EventLanguageChange = "languageChange"
	EventInputChange    = "inputChange"
	EventOutputChange   = "outputChange"
	EventLeaveRoom      = "leaveRoom"
)

// Outbound frame types.
const (
	EventSyncState      = "syncState"
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventRoomUsers      = "roomUsers"
	EventCodeUpdate     = "codeUpdate"
	EventLanguageUpdate = "languageUpdate"
	EventInputUpdate    = "inputUpdate"
	EventOutputUpdate   = "outputUpdate"
	EventErrorMessage   = "errorMessage"
)

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type CodeChange struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type LanguageChange struct {
	RoomID   string   `json:"roomId"`
	Language Language `json:"language"`
}

type InputChange struct {
	RoomID string `json:"roomId"`
	Input  string `json:"input"`
}

type OutputChange struct {
	RoomID string `json:"roomId"`
	Output string `json:"output"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

type UserEvent struct {
	Username string `json:"username"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

/*** Lifecycle notifications ***/
type RoomEventType string

const (
	RoomCreated RoomEventType = "room_created"
	RoomClosed  RoomEventType = "room_closed"
	UserJoined  RoomEventType = "user_joined"
	UserLeft    RoomEventType = "user_left"
)

// RoomEvent is published for external observers whenever room membership changes.
type RoomEvent struct {
	Type         RoomEventType `json:"type"`
	RoomID       string        `json:"roomId"`
	ConnectionID string        `json:"connectionId,omitempty"`
	Username     string        `json:"username,omitempty"`
	UserCount    int           `json:"userCount"`
	At           time.Time     `json:"at"`
}
