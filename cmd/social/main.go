// Command social drives the local friendship and messaging store from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/goph-social/internal/config"
	"github.com/and161185/goph-social/internal/repository"
	"github.com/and161185/goph-social/internal/service"
	"github.com/and161185/goph-social/internal/store"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app holds the services of one command invocation.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	blobs    repository.BlobStore
	friends  *service.FriendServiceImpl
	messages *service.MessageServiceImpl
}

// opener opens the configured blob store. Tests replace it.
type opener func(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.BlobStore, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openBackend).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	var (
		backend, dataDir, logLevel string
		a                          = &app{}
	)

	root := &cobra.Command{
		Use:           "social",
		Short:         "Local friendship and messaging store",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if backend != "" {
				cfg.Backend = backend
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return a.start(cmd.Context(), cfg, open)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&backend, "backend", "",
		"storage backend, one of memory, file, postgres, mongo, mysql (overrides SOCIAL_BACKEND)")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"data directory for the file backend (overrides SOCIAL_DATA_DIR)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides SOCIAL_LOG_LEVEL)")

	root.AddCommand(
		initCmd(a),
		usersCmd(a),
		friendsCmd(a),
		requestsCmd(a),
		chatCmd(a),
		leaderboardCmd(a),
		shareCmd(a),
		botsCmd(a),
		resetCmd(a),
	)
	return root
}

func (a *app) start(ctx context.Context, cfg config.Config, open opener) error {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	blobs, err := open(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return err
	}
	opts := cfg.StoreOptions()
	opts.Logger = log

	a.cfg = cfg
	a.log = log
	a.blobs = blobs
	a.friends = service.NewFriendService(store.NewFriendStore(blobs, opts), nil, log)
	a.messages = service.NewMessageService(store.NewMessageStore(blobs, opts), log)
	log.Debug("store opened", zap.String("backend", cfg.Backend))

	if err := a.friends.Initialize(ctx); err != nil {
		_ = a.close()
		return err
	}
	if err := a.messages.Initialize(ctx); err != nil {
		_ = a.close()
		return err
	}
	return nil
}

func (a *app) close() error {
	if a.log != nil {
		defer func() { _ = a.log.Sync() }()
	}
	if a.blobs == nil {
		return nil
	}
	return a.blobs.Close()
}

// newLogger builds a JSON logger on stderr; debug switches to the development encoder.
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
