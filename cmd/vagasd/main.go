package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/gustavoludtke/vagasbot/internal/async"
	"github.com/gustavoludtke/vagasbot/internal/chat"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/core"
	"github.com/gustavoludtke/vagasbot/internal/httpapi"
	"github.com/gustavoludtke/vagasbot/internal/workflow"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.ValidateDaemon(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("vagasd failed", "code", common.Code(err), "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	p, err := core.BuildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	store := core.BuildStore(cfg, logger)

	journal, db, err := core.OpenJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	opts := workflow.Options{SubmitOnMalformed: cfg.Extraction.SubmitOnMalformed}
	if journal != nil {
		defer db.Close()
		opts.Journal = journal
		logger.Info("journal enabled", "dialect", db.Dialect())
	}

	pub, err := core.BuildPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("events close", "error", err)
		}
	}()
	opts.Publisher = pub

	sessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	engine := workflow.New(p, store, opts, logger)
	sup := async.NewSupervisor(engine, logger, sessions...)

	// gRPC health for orchestrators; one service name per session
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		sup.Shutdown(ctx)
		return err
	}
	go func() {
		logger.Info("grpc health serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve", "error", err)
		}
	}()

	var httpServer *http.Server
	if cfg.Server.HTTPEnabled() {
		httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           httpapi.NewHandler(p, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("analyze endpoint serving", "addr", cfg.Server.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http serve", "error", err)
			}
		}()
	}

	sup.Start(ctx)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, s := range sessions {
		hs.SetServingStatus(s.Name(), healthpb.HealthCheckResponse_SERVING)
	}

	failed := 0
wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case se := <-sup.Errors():
			hs.SetServingStatus(se.Session, healthpb.HealthCheckResponse_NOT_SERVING)
			if failed++; failed == len(sessions) {
				logger.Error("all sessions stopped")
				break wait
			}
		}
	}

	logger.Info("shutting down...")
	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	sup.Shutdown(shutdownCtx)
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
	}
	grpcServer.GracefulStop()
	if ctx.Err() == nil {
		return errors.New("every chat session failed")
	}
	return nil
}

func openSessions(ctx context.Context, cfg *common.Config, logger *slog.Logger) ([]chat.Session, error) {
	var sessions []chat.Session
	if cfg.Telegram.Token != "" {
		tg, err := chat.NewTelegramSession(chat.TelegramConfig{
			Name:        "telegram",
			Token:       cfg.Telegram.Token,
			PollTimeout: cfg.Telegram.PollTimeout,
			Debug:       cfg.Telegram.Debug,
		}, nil, logger)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, tg)
	}
	if cfg.Polling.Enabled {
		sampler, err := chat.NewChromeSampler(ctx, chat.ChromeConfig{
			URL:           cfg.Polling.URL,
			Chat:          cfg.Polling.Chat,
			ProfileDir:    cfg.Polling.ProfileDir,
			Headless:      cfg.Polling.Headless,
			SampleTimeout: cfg.Polling.SampleTimeout,
		}, logger)
		if err != nil {
			for _, s := range sessions {
				_ = s.Close()
			}
			return nil, err
		}
		sessions = append(sessions, chat.NewPollingSession(sampler, chat.PollingConfig{
			Name:       "whatsapp",
			Chat:       cfg.Polling.Chat,
			MinBackoff: cfg.Polling.MinBackoff,
			MaxBackoff: cfg.Polling.MaxBackoff,
		}, logger))
	}
	return sessions, nil
}
