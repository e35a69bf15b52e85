// Package cli holds the cobra commands of monitoroff.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"monitoroff/config"
	"monitoroff/internal/clock"
	"monitoroff/internal/logging"
	"monitoroff/internal/power"
	"monitoroff/internal/settings"
	"monitoroff/internal/storage/sqlite"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:          "monitoroff",
		Short:        "Turn off the monitors, optionally locking the PC first",
		SilenceUsage: true,
		RunE:         runPrompt,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	RootCmd.PersistentFlags().Bool("dry-run", false, "Log monitor and lock actions instead of performing them")
	RootCmd.PersistentFlags().String("settings", "", "Settings file (default settings.ini next to the executable)")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("dry_run", RootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("settings.path", RootCmd.PersistentFlags().Lookup("settings"))
	RootCmd.PersistentFlags().String("ui", config.UIModeConsole, "Front-end: console or web")
	RootCmd.PersistentFlags().Duration("countdown", 0, "Turn off automatically after this delay (0 waits for an answer)")
	_ = viper.BindPFlag("ui.mode", RootCmd.PersistentFlags().Lookup("ui"))
	_ = viper.BindPFlag("flow.countdown", RootCmd.PersistentFlags().Lookup("countdown"))

	RootCmd.AddCommand(&runCmd, &offCmd, &onCmd, &lockCmd, &settingsCmd, &historyCmd)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		if exe, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(exe))
		}
		viper.AddConfigPath("$HOME/.monitoroff")
		viper.AddConfigPath(".")
		viper.SetConfigName("monitoroff")
	}

	config.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("MONITOROFF")
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFilename != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "err", err)
			os.Exit(1)
		}
	}
}

// app bundles what every command needs
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

func newApp() (*app, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	out, closeLog, err := logging.OpenLogFile(cfg.Log.Path)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Log.Format,
		Level:  logging.ParseLevel(cfg.Log.Level),
		Output: out,
	})
	slog.SetDefault(logger)

	return &app{cfg: cfg, logger: logger, closeLog: closeLog}, nil
}

func (a *app) Close() {
	if err := a.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
	}
}

// settingsStore loads the settings file, creating it with defaults if needed
func (a *app) settingsStore() *settings.Store {
	path := a.cfg.Settings.Path
	if path == "" {
		path = settings.DefaultPath()
	}
	store := settings.NewStore(path, a.logger)
	store.Load()
	return store
}

func (a *app) powerController() power.ControllerInterface {
	var platform power.Platform
	if a.cfg.DryRun {
		a.logger.Info("dry run: monitor and lock actions are only logged")
		platform = power.NewDryRunPlatform(2, a.logger)
	} else {
		platform = power.NewPlatform(a.logger)
	}
	controller := power.NewController(platform, clock.RealClock{}, a.cfg.Wake.Poll, a.logger)
	return logging.NewPowerControllerLogger(controller, a.logger)
}

// openHistory opens the run history database. It returns nil when history is disabled.
func (a *app) openHistory() (*sqlite.SQLiteStorage, error) {
	if !a.cfg.History.Enabled {
		return nil, nil
	}
	path := a.cfg.History.Path
	if path == "" {
		path = filepath.Join(filepath.Dir(settings.DefaultPath()), sqlite.DefaultFilename)
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	return db, nil
}
