package websocket

import "CampusPoker/internal/identity"

type OutgoingMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// IncomingMessage is one command per message. Betting actions carry Action,
// table lifecycle commands carry Cmd.
//
//	{"action": "raise", "amount": 40}
//	{"cmd": "queue", "amount": 500}
type IncomingMessage struct {
	Action string `json:"action,omitempty"` // fold|check|call|bet|raise
	Cmd    string `json:"cmd,omitempty"`    // queue|rebuy|leave|show
	Amount int64  `json:"amount,omitempty"`

	// stamped server-side from the connection's session, never trusted
	// from the wire
	From identity.Profile `json:"-"`
}
