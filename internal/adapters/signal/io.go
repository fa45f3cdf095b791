package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				c.logger.Debug().Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Opts.WriteTimeout)); err != nil {
				c.logger.Error().Err(err).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error().Err(err).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(ctl.Opts.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Warn().Err(err).Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, connID domain.ConnectionID, c *WsSignalConn, room domain.RoomID) {
	defer func() {
		c.logger.Info().Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(connID)
		if ctl.limiter != nil {
			ctl.limiter.Forget(connID)
		}
		c.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	})

	ctl.sendEvent(c, "connection-success", struct {
		ConnectionID domain.ConnectionID `json:"connectionId"`
	}{connID})
	if _, err := ctl.join(ctx, connID, room); err != nil {
		c.logger.Warn().Err(err).Str("room", string(room)).Msg("auto join failed")
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.logger.Error().Err(err).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
			ctl.handleSignal(ctx, connID, c, data)
		}
	}
}

// request is one decoded client message.
type request struct {
	ctx  context.Context
	conn domain.ConnectionID
	c    *WsSignalConn
	env  core.Envelope
}

func (r *request) decode(v any) error {
	if len(r.env.Data) == 0 || string(r.env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(r.env.Data, v)
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, connID domain.ConnectionID, c *WsSignalConn, data []byte) {
	req := &request{ctx: ctx, conn: connID, c: c}
	if err := json.Unmarshal(data, &req.env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}
	if ctl.limiter != nil && !ctl.limiter.Allow(connID) {
		log.Warn().Str("module", "signal").Str("conn", string(connID)).Str("event", req.env.Event).Msg("rate limited")
		ctl.replyError(req, ErrRateLimited)
		return
	}

	switch req.env.Event {
	case "getRtpCapabilities":
		ctl.handleGetRtpCapabilities(req)
	case "createWebRtcTransport":
		ctl.handleCreateTransport(req)
	case "transport-connect":
		ctl.handleConnect(req, domain.DirectionProducing)
	case "transport-recv-connect":
		ctl.handleConnect(req, domain.DirectionConsuming)
	case "transport-produce":
		ctl.handleProduce(req)
	case "consume":
		ctl.handleConsume(req)
	case "consumer-resume":
		ctl.handleResume(req)
	case "joinRoom":
		ctl.handleJoinRoom(req)
	case "getProducers":
		ctl.handleGetProducers(req)
	case "disconnect":
		ctl.handleDisconnect(req)
	case "ping":
		ctl.handlePing(req.c)
	default:
		log.Warn().Str("module", "signal").Str("event", req.env.Event).Msg("unknown signal")
		ctl.replyError(req, core.ErrBadRequest)
	}
}

func (ctl *SignalWSController) send(c *WsSignalConn, f core.Frame, err error) {
	if err != nil {
		c.logger.Error().Err(err).Msg("encode frame")
		return
	}
	if err := c.TrySend(f); err != nil {
		c.logger.Warn().Err(err).Msg("send")
	}
}

func (ctl *SignalWSController) sendEvent(c *WsSignalConn, name string, data any) {
	f, err := core.EncodeEvent(name, data)
	ctl.send(c, f, err)
}

// reply answers a callback message. Messages sent without an id get no reply.
func (ctl *SignalWSController) reply(req *request, data any) {
	if len(req.env.ID) == 0 {
		return
	}
	f, err := core.EncodeAck(req.env.ID, data)
	ctl.send(req.c, f, err)
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func newErrorPayload(err error) errorPayload {
	code := core.ErrorCode(err)
	if errors.Is(err, ErrRateLimited) {
		code = "RateLimited"
	}
	return errorPayload{Error: err.Error(), Code: code}
}

func (ctl *SignalWSController) replyError(req *request, err error) {
	ctl.reply(req, newErrorPayload(err))
}
