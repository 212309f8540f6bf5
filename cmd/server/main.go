// Package main initializes and starts the GophLedger HTTP server,
// setting up configuration, logging, storage, services, handlers, and
// optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/GophLedger/internal/config"
	"github.com/atinyakov/GophLedger/internal/db"
	"github.com/atinyakov/GophLedger/internal/logger"
	"github.com/atinyakov/GophLedger/internal/middleware"
	"github.com/atinyakov/GophLedger/internal/repository"
	"github.com/atinyakov/GophLedger/internal/server/handler/http"
	"github.com/atinyakov/GophLedger/internal/service"
	"github.com/atinyakov/GophLedger/internal/storage"
	"github.com/atinyakov/GophLedger/internal/token"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse("ledger-server")

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(cmp.Or(options.LogLevel, "info")); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick the storage backend.
	var (
		users   service.UserStore
		ledgers service.LedgerStore
	)
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()
		users = repository.NewPostgresUserRepository(postgresDB)
		ledgers = repository.NewPostgresLedgerRepository(postgresDB)
		zapLogger.Info("using postgres storage")
	} else {
		users = storage.NewUserFile(options.UsersFile, zapLogger)
		ledgers = storage.NewLedgerFile(options.ExpensesFile, zapLogger)
		zapLogger.Info("using file storage",
			zap.String("users", options.UsersFile),
			zap.String("expenses", options.ExpensesFile))
	}

	// Initialize business-logic services.
	hasher, err := service.NewHasher(options.HashAlgo)
	if err != nil {
		zapLogger.Fatal("invalid hash algorithm", zap.Error(err))
	}
	authService := service.NewAuthService(users, hasher, zapLogger)
	ledgerService := service.NewLedgerService(ledgers, zapLogger)

	secret := options.JWTSecret
	if secret == "" {
		secret = randomSecret()
		zapLogger.Warn("no JWT secret configured, tokens will not survive a restart")
	}
	issuer, err := token.NewIssuer(secret, options.TokenTTL)
	if err != nil {
		zapLogger.Fatal("cannot create token issuer", zap.Error(err))
	}

	// Login and registration: 1 request per second per IP, bursts of 5.
	limiter := middleware.NewRateLimiter(1, 5)
	limiter.StartCleanup(ctx, time.Minute, 10*time.Minute)

	// Create HTTP handlers and build the router.
	authHandler := &http.AuthHandler{AuthService: authService, Tokens: issuer}
	ledgerHandler := &http.LedgerHandler{LedgerService: ledgerService}
	router := http.NewRouter(authHandler, ledgerHandler, middleware.UserAuth(authService, issuer), limiter, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if options.TLSCert != "" && options.TLSKey != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
			return server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		return server.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
