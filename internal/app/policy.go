package app

import (
	"github.com/dkeye/roulette/internal/core"
	"github.com/dkeye/roulette/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickConnection
)

// Policy decides what happens to a connection whose outbound buffer is full.
type Policy interface {
	OnBackPressure(sid domain.SessionID, conn core.SignalConnection) BackpressureAction
}

// SimplePolicy closes slow connections. The connection-closed event then runs
// the normal disconnect path, so the partner observes partner-left.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.SessionID, core.SignalConnection) BackpressureAction {
	return KickConnection
}
