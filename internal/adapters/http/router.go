package http

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dkeye/mediagate/internal/adapters/signal"
	"github.com/dkeye/mediagate/internal/app/orch"
	"github.com/dkeye/mediagate/internal/config"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set(signal.ClientTokenKey, token)
		c.Next()
	}
}

func SignalOptions(cfg *config.Config) signal.Options {
	return signal.Options{
		DefaultRoom:  domain.RoomID(cfg.DefaultRoom),
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		PongWait:     cfg.PongWait,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
		RateLimit:    cfg.RateLimit.Messages,
		RateInterval: cfg.RateLimit.Interval,
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("MediagateSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	ctrl := signal.NewSignalWSController(orch, SignalOptions(cfg))
	r.GET("/mediasoup", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	admin := &adminHandlers{orch: orch}
	api := r.Group("/api")
	api.GET("/rooms", admin.listRooms)
	api.GET("/rooms/:room/peers", admin.listPeers)
	api.DELETE("/rooms/:room", admin.evictRoom)
	api.DELETE("/rooms/:room/peers/:id", admin.kickPeer)

	if st, err := os.Stat(cfg.StaticPath); err == nil && st.IsDir() {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(cfg.StaticPath, "index.html"))
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
