// cmd/web/serve.go
//
// `web serve` wiring.
//
// Request life-cycle
// ------------------
//
//	ForceHTTPS → Security headers → requestinfo.Middleware(trusted proxies) → chi router
//	  ├─ /healthz       – store connectivity probe
//	  ├─ /metrics       – Prometheus
//	  └─ /api/<name>/…  – registered components (contact, debug)
//
// Shutdown drains HTTP first, then sessions, then the notification queue.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/neurion/internal/component"
	"github.com/yanizio/neurion/internal/form"
	"github.com/yanizio/neurion/internal/message"
	"github.com/yanizio/neurion/internal/middleware"
	"github.com/yanizio/neurion/internal/requestinfo"
	"github.com/yanizio/neurion/internal/server"
	"github.com/yanizio/neurion/internal/session"
	"github.com/yanizio/neurion/internal/submission"
)

const shutdownGrace = 15 * time.Second

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg, log := a.cfg, a.log

	proxies, err := requestinfo.ParseProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		return err
	}

	//
	// ── 1.  Store + submission client ───────────────────────────────────
	//
	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier := message.NewDispatcher(message.Options{
		WebhookURL:   cfg.Notify.WebhookURL,
		MailRelayURL: cfg.Notify.MailRelayURL,
		From:         cfg.Notify.From,
		To:           cfg.Notify.To,
		QueueSize:    cfg.Notify.QueueSize,
		Logger:       log.Named("notify"),
	})
	opts := []submission.Option{submission.WithLogger(log.Named("submission"))}
	if notifier.Enabled() {
		opts = append(opts, submission.WithNotifier(notifier))
	}
	client := submission.New(st, opts...)

	//
	// ── 2.  Sessions ────────────────────────────────────────────────────
	//
	sessions := session.NewManager(client, session.ManagerOptions{
		IdleTTL:       cfg.Session.IdleTTL,
		MaxEntries:    cfg.Session.MaxEntries,
		EvictInterval: cfg.Session.EvictInterval,
		SuccessDelay:  cfg.Session.SuccessDelay,
		Logger:        log.Named("session"),
	})

	//
	// ── 3.  Optional GeoIP ──────────────────────────────────────────────
	//
	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
			log.Warnw("geoip disabled", "path", cfg.GeoIP.DBPath, "err", err)
		} else {
			defer requestinfo.CloseGeo()
		}
	}

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !client.CheckConnectivity(r.Context()) {
			http.Error(w, "store unreachable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	if err := component.Mount(r, component.Services{
		Sessions:  sessions,
		Client:    client,
		CSRF:      form.NewCSRF([]byte(cfg.CSRF.Secret), cfg.CSRF.MaxAge),
		Logger:    log,
		CookieTTL: cfg.Session.IdleTTL,
		Debug:     cfg.HTTP.DebugEndpoints,
	}); err != nil {
		return err
	}

	handler := middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS,
		middleware.Security(requestinfo.Middleware(proxies)(r)))

	srv := server.New(cfg.HTTP.ListenAddr, handler, server.Timeouts{
		ReadHeader: cfg.HTTP.ReadHeaderTimeout,
		Read:       cfg.HTTP.ReadTimeout,
		Write:      cfg.HTTP.WriteTimeout,
		Idle:       cfg.HTTP.IdleTimeout,
	})

	//
	// ── 5.  Run until signalled ─────────────────────────────────────────
	//
	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", cfg.HTTP.ListenAddr, "force_https", cfg.HTTP.ForceHTTPS)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			sessions.Close()
			return err
		}
	case <-ctx.Done():
		log.Infow("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warnw("http shutdown", "err", err)
	}
	sessions.Close()
	if err := notifier.Close(sctx); err != nil {
		log.Warnw("notification queue not drained", "err", err)
	}
	return nil
}
