package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/costbook/internal/backup"
	"github.com/roach88/costbook/internal/config"
	"github.com/roach88/costbook/internal/kv"
	"github.com/roach88/costbook/internal/session"
	"github.com/roach88/costbook/internal/store"
)

// App is everything a command needs, opened from the configuration.
type App struct {
	Config    *config.Config
	Log       *slog.Logger
	Local     *kv.Local
	Profiles  store.Profiles
	Manager   *session.Manager
	Codec     *backup.Codec
	Formatter *OutputFormatter
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		if opts.DataDir != "" {
			path = filepath.Join(opts.DataDir, config.FileName)
		} else {
			path = config.DefaultPath()
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	return cfg, nil
}

func newLogger(w io.Writer, opts *RootOptions, cfg *config.Config) *slog.Logger {
	level := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp loads the configuration, opens both stores and boots the session.
func openApp(cmd *cobra.Command, opts *RootOptions) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	log := newLogger(cmd.ErrOrStderr(), opts, cfg)

	log.Debug("opening data store", "path", cfg.RowsPath())
	engine, err := kv.Open(cfg.RowsPath())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open data store", err)
	}
	local := kv.NewLocal(engine, log, cfg.DefaultMarginPct)
	profiles := store.OpenProfiles(cfg.ProfilesPath(), log)

	m := session.New(local, profiles,
		session.WithDebounce(cfg.Debounce),
		session.WithLogger(log),
	)
	if _, err := m.Boot(commandContext(cmd)); err != nil {
		_ = profiles.Close()
		_ = local.Close()
		return nil, WrapExitError(ExitFailure, "failed to load recipes", err)
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Local:    local,
		Profiles: profiles,
		Manager:  m,
		Codec:    backup.NewCodec(m, backup.WithLogger(log)),
		Formatter: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

// Close writes unsaved edits and closes both stores.
func (a *App) Close() error {
	return errors.Join(
		a.Manager.Close(),
		a.Profiles.Close(),
		a.Local.Close(),
	)
}

// withApp opens the app, runs fn and closes the app, keeping fn's error
// over a close error.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *App) error) (err error) {
	app, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			app.Log.Error("error closing stores", "error", closeErr)
			if err == nil {
				err = WrapExitError(ExitFailure, "failed to close stores", closeErr)
			}
		}
	}()
	return fn(commandContext(cmd), app)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
