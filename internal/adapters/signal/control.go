package signal

import (
	"github.com/dkeye/roulette/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) sendError(conn *WsSignalConn, code protocol.Code, msg string) {
	ctl.sendJSON(conn, protocol.Error(code, msg))
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v protocol.Outbound) {
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("sendJSON")
	}
}
