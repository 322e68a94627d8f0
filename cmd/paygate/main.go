package main

import (
	"context"

	"github.com/solsight/paygate/internal/application/payments"
	"github.com/solsight/paygate/internal/infrastructure/database"
	"github.com/solsight/paygate/internal/infrastructure/rpc"
	"github.com/solsight/paygate/internal/repositories/sessionrepo"
	"github.com/solsight/paygate/internal/server"
	"github.com/solsight/paygate/internal/server/websocket"
	"github.com/solsight/paygate/pkg/config"
	"github.com/solsight/paygate/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewForEnvironment(cfg.Server.Environment)

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	ledgerClient, err := rpc.NewSolanaClient(&cfg.Ledger, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger client")
	}

	wsHub := websocket.NewWsHub(log)
	go wsHub.Run()

	sessionRepo := sessionrepo.New(db, log)
	sessionStore := payments.NewSessionStore()

	paymentService := payments.NewPaymentService(
		sessionStore,
		sessionRepo,
		ledgerClient,
		wsHub,
		cfg,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := paymentService.Recover(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to recover sessions from durable store")
	}

	sweeper := payments.NewSweeper(sessionStore, sessionRepo, wsHub, cfg.Session, log)
	go sweeper.Start(ctx)

	srv := server.New(cfg, paymentService, db, log, wsHub)
	srv.Start()
}
