package protocol

import "encoding/json"

type Register struct {
	SessionID string `json:"sessionId"`
}

type JoinQueue struct {
	SessionID string `json:"sessionId"`
	Mode      string `json:"mode"`
}

type LeaveQueue struct{}

type Next struct{}

type EndChat struct{}

type Message struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type Typing struct {
	RoomID string `json:"roomId"`
	Typing bool   `json:"typing"`
}

// Offer, Answer and ICECandidate carry their payload as raw JSON. The server
// never looks inside it; it is handed to the partner byte for byte.
type Offer struct {
	To  string          `json:"to"`
	SDP json.RawMessage `json:"sdp"`
}

type Answer struct {
	To  string          `json:"to"`
	SDP json.RawMessage `json:"sdp"`
}

type ICECandidate struct {
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type Report struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

type Ping struct{}

func (*Register) Type() Type     { return TypeRegister }
func (*JoinQueue) Type() Type    { return TypeJoinQueue }
func (*LeaveQueue) Type() Type   { return TypeLeaveQueue }
func (*Next) Type() Type         { return TypeNext }
func (*EndChat) Type() Type      { return TypeEndChat }
func (*Message) Type() Type      { return TypeMessage }
func (*Typing) Type() Type       { return TypeTyping }
func (*Offer) Type() Type        { return TypeOffer }
func (*Answer) Type() Type       { return TypeAnswer }
func (*ICECandidate) Type() Type { return TypeICE }
func (*Report) Type() Type       { return TypeReport }
func (*Ping) Type() Type         { return TypePing }
