package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Elizabethomito/igaratrack/internal/attendance"
	"github.com/Elizabethomito/igaratrack/internal/ceremony"
	"github.com/Elizabethomito/igaratrack/internal/challenge"
	"github.com/Elizabethomito/igaratrack/internal/config"
	"github.com/Elizabethomito/igaratrack/internal/handlers"
	"github.com/Elizabethomito/igaratrack/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the nightly attendance job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

// challengeStore picks Redis when REDIS_ADDR is set so several instances
// behind a load balancer share pending challenges.
func challengeStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (challenge.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("using in-memory challenge store")
		return challenge.NewMemoryStore(), func() {}, nil
	}
	rdb, err := challenge.DialRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using redis challenge store", "addr", cfg.RedisAddr)
	return challenge.NewRedisStore(rdb, cfg.ChallengeTTL), func() { _ = rdb.Close() }, nil
}

func serve(ctx context.Context) error {
	cfg, log, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close()

	pending, closePending, err := challengeStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("challenge store: %w", err)
	}
	defer closePending()

	loc := cfg.Location()
	st := store.New(database)
	ceremonies := ceremony.NewService(ceremony.Config{
		RPID:     cfg.RPID,
		RPName:   cfg.RPName,
		RPOrigin: cfg.RPOrigin,
		Timeout:  cfg.ChallengeTTL,
	}, challenge.NewManager(pending, cfg.ChallengeTTL), st.Credentials, st.Teachers)
	att := attendance.NewService(attendance.ServiceParams{
		Teachers:  st.Teachers,
		Holidays:  st.Holidays,
		Timetable: st.Timetable,
		Logs:      st.Logs,
		Audit:     st.Audit,
		Location:  loc,
		Logger:    log,
	})

	pre := attendance.NewPregenerator(st.Holidays, st.Timetable, st.Logs, log)
	sched, err := attendance.NewScheduler(pre, cfg.PregenerateSchedule, loc, log)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.PregenerateSchedule, err)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	api := handlers.NewServer(st, ceremonies, att, cfg.JWTSecret, log)
	api.TrustProxy = cfg.TrustProxy
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("attendance API listening", "addr", cfg.Addr, "rp_id", cfg.RPID, "timezone", cfg.TimeZone)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
