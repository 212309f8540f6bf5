// Package main is the command-line front end of GophLedger. It works on the
// local stores directly, or on a running server when -url is given.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/atinyakov/GophLedger/internal/client"
	"github.com/atinyakov/GophLedger/internal/config"
	"github.com/atinyakov/GophLedger/internal/db"
	"github.com/atinyakov/GophLedger/internal/logger"
	"github.com/atinyakov/GophLedger/internal/models"
	"github.com/atinyakov/GophLedger/internal/repository"
	"github.com/atinyakov/GophLedger/internal/service"
	"github.com/atinyakov/GophLedger/internal/storage"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	options := config.Parse("ledger")

	if len(options.Args) > 0 && options.Args[0] == "version" {
		fmt.Printf("GophLedger Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return 0
	}

	log := logger.New()
	if err := log.InitConsole(cmp.Or(options.LogLevel, "warn")); err != nil {
		fmt.Fprintln(os.Stderr, "invalid log level:", err)
		return 2
	}
	defer func() { _ = log.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &client.CLI{
		Prompter: client.NewPrompter(os.Stdin, os.Stdout),
		Out:      os.Stdout,
		Log:      log.Log,
	}
	closeBackend, err := setupBackend(cli, options, log.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer closeBackend()

	if err := cli.Run(ctx, options.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, client.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}

// setupBackend picks the remote client, the PostgreSQL stores or the JSON
// files, in that order. The returned func releases what was opened.
func setupBackend(cli *client.CLI, options *config.Options, log *zap.Logger) (func(), error) {
	noop := func() {}

	if options.ServerURL != "" {
		httpClient, err := client.NewHTTPClient(options.CAFile)
		if err != nil {
			return noop, err
		}
		cli.Backend = client.NewRemote(options.ServerURL, httpClient)
		return noop, nil
	}

	hasher, err := service.NewHasher(options.HashAlgo)
	if err != nil {
		return noop, err
	}

	if options.Single {
		ledger := service.NewLedgerService(storage.NewFlatLedgerFile(options.ExpensesFile, log), log)
		local := &client.Local{Ledger: ledger}
		cli.Backend = local
		cli.Session = local.SessionFor(models.LocalUser)
		return noop, nil
	}

	var (
		users   service.UserStore
		ledgers service.LedgerStore
		closeFn = noop
	)
	if options.DatabaseDSN != "" {
		conn, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return noop, err
		}
		users = repository.NewPostgresUserRepository(conn)
		ledgers = repository.NewPostgresLedgerRepository(conn)
		closeFn = func() { _ = conn.Close() }
	} else {
		users = storage.NewUserFile(options.UsersFile, log)
		ledgers = storage.NewLedgerFile(options.ExpensesFile, log)
	}

	cli.Backend = &client.Local{
		Auth:   service.NewAuthService(users, hasher, log),
		Ledger: service.NewLedgerService(ledgers, log),
	}
	return closeFn, nil
}
