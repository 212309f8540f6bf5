// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file,
// a .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/atinyakov/GophLedger/internal/storage"
	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"addr"`

	// DatabaseDSN selects the PostgreSQL backend when non-empty.
	DatabaseDSN string `json:"database_dsn"`

	// UsersFile is the path of the user store file.
	UsersFile string `json:"users_file"`

	// ExpensesFile is the path of the ledger store file.
	ExpensesFile string `json:"expenses_file"`

	// Single switches to the single-user flat ledger file without authentication.
	Single bool `json:"single"`

	// HashAlgo is the password hash for new users: "sha256" or "bcrypt".
	HashAlgo string `json:"hash_algo"`

	// JWTSecret signs the bearer tokens issued by the server.
	JWTSecret string `json:"jwt_secret"`

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `json:"token_ttl"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// CAFile is a PEM bundle the CLI trusts in addition to the system roots.
	CAFile string `json:"ca_file"`

	// ServerURL makes the CLI talk to a running server instead of local files.
	ServerURL string `json:"server_url"`

	// LogLevel is the minimum zap level.
	LogLevel string `json:"log_level"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// EnvFile is loaded into the environment before variables are read.
	EnvFile string `json:"-"`

	// Args holds the arguments left after flag parsing.
	Args []string `json:"-"`
}

// env maps environment variables to the options they override.
var env = []struct {
	name string
	set  func(o *Options, v string) error
}{
	{"SERVER_ADDRESS", func(o *Options, v string) error { o.Addr = v; return nil }},
	{"DATABASE_DSN", func(o *Options, v string) error { o.DatabaseDSN = v; return nil }},
	{"USERS_FILE", func(o *Options, v string) error { o.UsersFile = v; return nil }},
	{"EXPENSES_FILE", func(o *Options, v string) error { o.ExpensesFile = v; return nil }},
	{"HASH_ALGO", func(o *Options, v string) error { o.HashAlgo = v; return nil }},
	{"JWT_SECRET", func(o *Options, v string) error { o.JWTSecret = v; return nil }},
	{"SERVER_URL", func(o *Options, v string) error { o.ServerURL = v; return nil }},
	{"LOG_LEVEL", func(o *Options, v string) error { o.LogLevel = v; return nil }},
	{"TOKEN_TTL", func(o *Options, v string) (err error) {
		o.TokenTTL, err = time.ParseDuration(v)
		return err
	}},
}

// newFlagSet registers every flag on a fresh FlagSet bound to o.
func newFlagSet(name string, o *Options) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.StringVar(&o.Addr, "a", "localhost:8080", "run on ip:port server")
	flags.StringVar(&o.DatabaseDSN, "d", "", "db address")
	flags.StringVar(&o.UsersFile, "users", storage.DefaultUsersFile, "path to users file")
	flags.StringVar(&o.ExpensesFile, "expenses", storage.DefaultExpensesFile, "path to expenses file")
	flags.BoolVar(&o.Single, "single", false, "single-user mode: flat expenses file, no login")
	flags.StringVar(&o.HashAlgo, "hash", "sha256", "password hash for new users (sha256|bcrypt)")
	flags.StringVar(&o.JWTSecret, "jwt-secret", "", "secret used to sign bearer tokens")
	flags.DurationVar(&o.TokenTTL, "token-ttl", 12*time.Hour, "bearer token lifetime")
	flags.StringVar(&o.TLSCert, "tls-cert", "", "path to server TLS certificate")
	flags.StringVar(&o.TLSKey, "tls-key", "", "path to server TLS key")
	flags.StringVar(&o.CAFile, "ca", "", "path to CA certificate trusted by the remote client")
	flags.StringVar(&o.ServerURL, "url", "", "server base URL for remote mode")
	flags.StringVar(&o.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&o.Config, "config", "config.json", "path to config file")
	flags.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	flags.StringVar(&o.EnvFile, "env-file", ".env", "path to .env file")
	return flags
}

// Parse parses os.Args and exits on a flag error.
func Parse(name string) *Options {
	o, err := ParseArgs(name, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return o
}

// ParseArgs builds Options from args. Precedence, lowest first: flag
// defaults, the JSON config file, explicit flags, environment variables
// (after loading the .env file).
func ParseArgs(name string, args []string) (*Options, error) {
	o := &Options{}
	flags := newFlagSet(name, o)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}
	if o.Config != "" {
		data, err := os.ReadFile(o.Config)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, o); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
			// Explicit flags win over the file.
			if err := flags.Parse(args); err != nil {
				return nil, err
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("error while reading config file: %w", err)
		}
	}

	if o.EnvFile != "" {
		if err := godotenv.Load(o.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error while loading env file: %w", err)
		}
	}
	for _, e := range env {
		if v, ok := os.LookupEnv(e.name); ok && v != "" {
			if err := e.set(o, v); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", e.name, err)
			}
		}
	}

	o.Args = flags.Args()
	return o, nil
}
