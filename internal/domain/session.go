// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxSessionIDLen = 64

var (
	ErrEmptySessionID   = errors.New("session id empty")
	ErrSessionIDTooLong = errors.New("session id too long")
	ErrUnknownMode      = errors.New("unknown mode")
)

// SessionID addresses one logical participant independently of its connection.
type SessionID string

// ParseSessionID trims and validates a client supplied identifier.
func ParseSessionID(raw string) (SessionID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptySessionID
	}
	if len(s) > MaxSessionIDLen {
		return "", ErrSessionIDTooLong
	}
	return SessionID(s), nil
}

type Status int

const (
	StatusIdle Status = iota
	StatusQueued
	StatusBusy
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusQueued:
		return "queued"
	case StatusBusy:
		return "busy"
	default:
		return "unknown"
	}
}

type Mode string

const (
	ModeChat  Mode = "chat"
	ModeVideo Mode = "video"
)

// ParseMode maps the wire value to a Mode. An empty value yields def.
func ParseMode(raw string, def Mode) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return def, nil
	case ModeChat:
		return ModeChat, nil
	case ModeVideo:
		return ModeVideo, nil
	default:
		return "", ErrUnknownMode
	}
}

func (m Mode) Valid() bool { return m == ModeChat || m == ModeVideo }

// Session is the registry's view of one participant.
// RoomID is set if and only if Status is StatusBusy.
type Session struct {
	ID     SessionID
	Status Status
	Mode   Mode
	RoomID RoomID
}

func (s *Session) InRoom() bool { return s.Status == StatusBusy && s.RoomID != "" }
