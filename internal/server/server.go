package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-monitor/internal/interfaces"
	"trade-monitor/internal/logger"
	"trade-monitor/internal/types"
)

const FingerprintHeader = "X-Trades-Fingerprint"

type Options struct {
	APIPrefix     string
	CORSOrigins   []string
	WebSocketPath string
	// WebSocket handles upgrades on WebSocketPath; nil disables the route.
	WebSocket http.Handler
}

type handlers struct {
	store interfaces.TradeStore
}

// NewRouter builds the HTTP surface over store. Every trades endpoint
// answers 200; load failures are reported in the body.
func NewRouter(store interfaces.TradeStore, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(cors(opts.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{store: store}
	api := r.Group(opts.APIPrefix)
	{
		api.GET("/trades", h.trades)
		api.GET("/trades/refresh", h.refresh)
		api.GET("/trades/current", h.current)
		api.GET("/trades/status", h.status)
	}

	if opts.WebSocket != nil && opts.WebSocketPath != "" {
		r.GET(opts.WebSocketPath, gin.WrapH(opts.WebSocket))
	}

	return r
}

func (h *handlers) trades(c *gin.Context) {
	writeSnapshot(c, h.store.MaybeRefresh(c.Request.Context()))
}

func (h *handlers) refresh(c *gin.Context) {
	writeSnapshot(c, h.store.ForceRefresh(c.Request.Context()))
}

func (h *handlers) current(c *gin.Context) {
	writeSnapshot(c, h.store.CurrentView())
}

func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Status())
}

func writeSnapshot(c *gin.Context, snap types.Snapshot) {
	if fp := snap.FingerprintHex(); fp != "" {
		c.Header(FingerprintHeader, fp)
	}
	c.JSON(http.StatusOK, snap.Response())
}

func cors(origins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", FingerprintHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug(c.Request.Context(), "HTTP request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
