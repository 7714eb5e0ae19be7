// Package protocol defines the JSON events exchanged over the signaling socket.
// Every frame is an object whose "type" field selects one concrete payload shape;
// the remaining fields are flattened next to it.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/roulette/internal/core"
)

type Type string

// Inbound event types.
const (
	TypeRegister   Type = "register"
	TypeJoinQueue  Type = "joinQueue"
	TypeLeaveQueue Type = "leaveQueue"
	TypeNext       Type = "next"
	TypeEndChat    Type = "endChat"
	TypeMessage    Type = "message"
	TypeTyping     Type = "typing"
	TypeOffer      Type = "webrtc-offer"
	TypeAnswer     Type = "webrtc-answer"
	TypeICE        Type = "webrtc-ice"
	TypeReport     Type = "report"
	TypePing       Type = "ping"
)

// Outbound-only event types. message, typing and the webrtc-* types are reused.
const (
	TypeRegistered  Type = "registered"
	TypeError       Type = "error"
	TypeQueued      Type = "queued"
	TypeLeftQueue   Type = "leftQueue"
	TypeMatched     Type = "matched"
	TypePartnerLeft Type = "partner-left"
	TypeOnlineCount Type = "onlineCount"
	TypeReported    Type = "reported"
	TypePong        Type = "pong"
)

// Code is carried by error events.
type Code string

const (
	CodeNoSession     Code = "NO_SESSION"
	CodeNotRegistered Code = "NOT_REGISTERED"
	CodeInChat        Code = "IN_CHAT"
	CodeMsgFailed     Code = "MSG_FAILED"
	CodeBadPayload    Code = "BAD_PAYLOAD"
	CodeRateLimited   Code = "RATE_LIMITED"
)

var (
	ErrBadPayload  = errors.New("bad payload")
	ErrUnknownType = errors.New("unknown event type")
)

// Inbound is implemented by every event a client may send.
type Inbound interface {
	Type() Type
}

// Decode parses one frame into its concrete inbound event.
func Decode(data []byte) (Inbound, error) {
	var env struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	var in Inbound
	switch env.Type {
	case TypeRegister:
		in = &Register{}
	case TypeJoinQueue:
		in = &JoinQueue{}
	case TypeLeaveQueue:
		in = &LeaveQueue{}
	case TypeNext:
		in = &Next{}
	case TypeEndChat:
		in = &EndChat{}
	case TypeMessage:
		in = &Message{}
	case TypeTyping:
		in = &Typing{}
	case TypeOffer:
		in = &Offer{}
	case TypeAnswer:
		in = &Answer{}
	case TypeICE:
		in = &ICECandidate{}
	case TypeReport:
		in = &Report{}
	case TypePing:
		in = &Ping{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if err := json.Unmarshal(data, in); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadPayload, env.Type, err)
	}
	return in, nil
}

// Encode marshals an outbound event into a frame.
func Encode(v Outbound) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", v.Type(), err)
	}
	return core.Frame(b), nil
}
