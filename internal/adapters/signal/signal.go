package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/mediagate/internal/app/orch"
	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
	ErrRateLimited  = errors.New("rate limited")
)

// sessionRoomKey is where the browser session remembers the last requested room.
const sessionRoomKey = "room"

// ClientTokenKey is the gin context key of the browser's client token.
const ClientTokenKey = "client_token"

type Options struct {
	DefaultRoom  domain.RoomID
	ReadLimit    int64
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
	RateLimit    int
	RateInterval time.Duration
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Opts    Options
	limiter *RateLimiter
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	ctl := &SignalWSController{Orch: o, Opts: opts}
	if opts.RateLimit > 0 {
		ctl.limiter = NewRateLimiter(opts.RateLimit, opts.RateInterval)
	}
	return ctl
}

type WsSignalConn struct {
	conn   *websocket.Conn
	send   chan core.Frame
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until either side ends it.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	room := ctl.initialRoom(c)
	connID := domain.NewConnectionID()
	logger := connLogger(log.Logger, connID, c.GetString(ClientTokenKey))
	logger.Info().Str("room", string(room)).Msg("new WS connection")

	var header http.Header
	if cookies := c.Writer.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.Opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Opts.ReadLimit)
	}

	conn := &WsSignalConn{
		conn:   ws,
		send:   make(chan core.Frame, ctl.Opts.SendBuffer),
		logger: logger,
	}
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(connID, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, connID, conn, room)
}

// connLogger tags a connection's log lines with its id and the browser's client token.
func connLogger(base zerolog.Logger, conn domain.ConnectionID, client string) zerolog.Logger {
	return base.With().
		Str("module", "signal").
		Str("conn", string(conn)).
		Str("client", client).
		Logger()
}

// initialRoom picks the room to auto-join: the query, then the browser session,
// then the default. A valid query room is remembered in the session.
func (ctl *SignalWSController) initialRoom(c *gin.Context) domain.RoomID {
	session := sessions.Default(c)
	if q := c.Query("room"); q != "" {
		if id, err := domain.NewRoomID(q); err == nil {
			session.Set(sessionRoomKey, string(id))
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("session save")
			}
			return id
		}
		log.Warn().Str("module", "signal").Str("room", q).Msg("ignoring invalid room name")
	}
	if v, ok := session.Get(sessionRoomKey).(string); ok {
		if id, err := domain.NewRoomID(v); err == nil {
			return id
		}
	}
	return ctl.Opts.DefaultRoom
}
