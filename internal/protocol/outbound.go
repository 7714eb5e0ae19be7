package protocol

import (
	"encoding/json"
	"time"
)

// Outbound is implemented by every event the server emits.
// Build values with the constructors below so the type tag is always set.
type Outbound interface {
	Type() Type
}

type envelope struct {
	Kind Type `json:"type"`
}

func (e envelope) Type() Type { return e.Kind }

type RegisteredEvent struct {
	envelope
	SessionID string `json:"sessionId"`
}

type ErrorEvent struct {
	envelope
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

type MatchedEvent struct {
	envelope
	RoomID    string `json:"roomId"`
	PartnerID string `json:"partnerId"`
	Mode      string `json:"mode"`
	Initiator bool   `json:"initiator"`
}

type MessageEvent struct {
	envelope
	From      string    `json:"from"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type TypingEvent struct {
	envelope
	From   string `json:"from"`
	Typing bool   `json:"typing"`
}

type SDPEvent struct {
	envelope
	From string          `json:"from"`
	SDP  json.RawMessage `json:"sdp"`
}

type ICEEvent struct {
	envelope
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

type OnlineCountEvent struct {
	envelope
	Total int `json:"total"`
}

func Registered(sid string) RegisteredEvent {
	return RegisteredEvent{envelope{TypeRegistered}, sid}
}

func Error(code Code, msg string) ErrorEvent {
	return ErrorEvent{envelope{TypeError}, code, msg}
}

func Queued() Outbound      { return envelope{TypeQueued} }
func LeftQueue() Outbound   { return envelope{TypeLeftQueue} }
func PartnerLeft() Outbound { return envelope{TypePartnerLeft} }
func Reported() Outbound    { return envelope{TypeReported} }
func Pong() Outbound        { return envelope{TypePong} }

func Matched(roomID, partnerID, mode string, initiator bool) MatchedEvent {
	return MatchedEvent{envelope{TypeMatched}, roomID, partnerID, mode, initiator}
}

func ChatMessage(from, text string, createdAt time.Time) MessageEvent {
	return MessageEvent{envelope{TypeMessage}, from, text, createdAt}
}

func TypingIndicator(from string, typing bool) TypingEvent {
	return TypingEvent{envelope{TypeTyping}, from, typing}
}

func RelayOffer(from string, sdp json.RawMessage) SDPEvent {
	return SDPEvent{envelope{TypeOffer}, from, sdp}
}

func RelayAnswer(from string, sdp json.RawMessage) SDPEvent {
	return SDPEvent{envelope{TypeAnswer}, from, sdp}
}

func RelayICE(from string, c json.RawMessage) ICEEvent {
	return ICEEvent{envelope{TypeICE}, from, c}
}

func OnlineCount(total int) OnlineCountEvent {
	return OnlineCountEvent{envelope{TypeOnlineCount}, total}
}
