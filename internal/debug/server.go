// Package debug serves the localhost introspection endpoint: live
// Prometheus metrics, cache statistics and a health probe. It is
// optional and off by default; the TUI never depends on it.
package debug

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	gstrconv "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/hubview/hubview/pkg/cache"
	"github.com/hubview/hubview/pkg/config"
	"github.com/hubview/hubview/pkg/rate"
)

const shutdownTimeout = 5 * time.Second

var healthResponseBytes = []byte(`{"status":200,"message":"ok"}`)

// Server is the fasthttp debug server.
type Server struct {
	ctx    context.Context
	cfg    config.DebugServer
	server *fasthttp.Server
	cache  *cache.Cache
	limits *rate.LimitState
}

func New(ctx context.Context, cfg config.DebugServer, reg *prometheus.Registry, c *cache.Cache, limits *rate.LimitState) *Server {
	s := &Server{ctx: ctx, cfg: cfg, cache: c, limits: limits}

	r := router.New()
	r.GET("/healthz", s.health)
	r.GET("/cache/stats", s.stats)
	r.POST("/cache/invalidate", s.invalidate)
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	))

	s.server = &fasthttp.Server{
		Handler:          r.Handler,
		DisableKeepalive: false,
		ReadTimeout:      5 * time.Second,
	}
	return s
}

// ListenAndServe runs the server until the app context is canceled.
func (s *Server) ListenAndServe() {
	go s.serve()
	go s.shutdown()
}

func (s *Server) serve() {
	log.Info().Msgf("[debug] server started on %s", s.cfg.Addr)
	defer log.Info().Msgf("[debug] server stopped on %s", s.cfg.Addr)

	if err := s.server.ListenAndServe(s.cfg.Addr); err != nil {
		log.Err(err).Msgf("[debug] failed to listen and serve %s", s.cfg.Addr)
	}
}

func (s *Server) shutdown() {
	<-s.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.ShutdownWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Msgf("[debug] shutdown failed: %v", err)
	}
}

func (s *Server) health(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	if _, err := ctx.Write(healthResponseBytes); err != nil {
		log.Err(err).Msg("[debug] failed to write health response")
	}
}

func (s *Server) stats(ctx *fasthttp.RequestCtx) {
	snap := s.limits.Snapshot()
	payload := struct {
		Cache cache.Stats `json:"cache"`
		Rate  struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			ResetUnix int64 `json:"reset_unix"`
		} `json:"rate"`
	}{Cache: s.cache.Stats()}
	payload.Rate.Limit = snap.Limit
	payload.Rate.Remaining = snap.Remaining
	if !snap.Reset.IsZero() {
		payload.Rate.ResetUnix = snap.Reset.Unix()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"error":"marshal failed"}`)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// invalidate drops cached entries under a URL prefix; a manual pressure
// valve while debugging staleness.
func (s *Server) invalidate(ctx *fasthttp.RequestCtx) {
	// Zero-copy view into the arg buffer; only read within this call.
	prefix := gstrconv.B2S(ctx.QueryArgs().Peek("prefix"))
	if prefix == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString(`{"error":"missing prefix"}`)
		return
	}
	removed := s.cache.Invalidate(prefix)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"removed":` + strconv.Itoa(removed) + `}`)
}
