package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/roulette/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump closing")
		c.Close()
		ctl.Engine.Detach(c)
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
			ctl.handleSignal(c, data)
		}
	}
}

// handleSignal validates a frame at the boundary. Only well-formed events
// reach the engine.
func (ctl *SignalWSController) handleSignal(c *WsSignalConn, data []byte) {
	in, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("bad signal")
		msg := "malformed event"
		if errors.Is(err, protocol.ErrUnknownType) {
			msg = "unknown event type"
		}
		ctl.sendError(c, protocol.CodeBadPayload, msg)
		return
	}
	ctl.Engine.Submit(c, in)
}
