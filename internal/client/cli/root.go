// Package cli командный интерфейс клиента синхронизации
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/logger"
)

// rootOptions общее состояние команд одного запуска
type rootOptions struct {
	vip        *viper.Viper
	cfg        *config.Config
	logger     *slog.Logger
	logCloser  io.Closer
	configFile string
	version    string
}

// flagBindings persistent флаги и ключи конфигурации, которые они переопределяют
var flagBindings = []struct {
	flag  string
	key   string
	usage string
}{
	{flag: "server", key: "server_url", usage: "Coordinator URL"},
	{flag: "db", key: "db_path", usage: "Path to local database"},
	{flag: "device", key: "device_id", usage: "Device id (generated on first run when empty)"},
	{flag: "user", key: "user_id", usage: "User id attached to changes"},
	{flag: "strategy", key: "sync.strategy", usage: "Conflict strategy: local, remote or merge"},
	{flag: "log-level", key: "log.level", usage: "Log level: debug, info, warn, error"},
	{flag: "log-file", key: "log.file", usage: "Write logs to a rotated file instead of stderr"},
}

// NewRootCommand создает корневую команду клиента
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{
		vip:     viper.New(),
		version: version,
	}

	cmd := &cobra.Command{
		Use:   "gophsync",
		Short: "Offline-first sync client",
		Long: `gophsync keeps resources in a local database, tracks every change
with vector clocks and synchronizes them with the coordinator.

Configuration is read from --config, GOPHSYNC_* environment variables
and the flags below, in increasing priority.`,
		SilenceUsage:       true,
		PersistentPreRunE:  opts.load,
		PersistentPostRunE: opts.close,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to config file (yaml, toml or json)")
	for _, b := range flagBindings {
		flags.String(b.flag, "", b.usage)
		if err := opts.vip.BindPFlag(b.key, flags.Lookup(b.flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", b.flag, err))
		}
	}

	cmd.AddCommand(
		newPutCommand(opts),
		newCreateCommand(opts),
		newUpdateCommand(opts),
		newGetCommand(opts),
		newListCommand(opts),
		newDeleteCommand(opts),
		newHistoryCommand(opts),
		newPendingCommand(opts),
		newSyncCommand(opts),
		newRunCommand(opts),
		newVerifyCommand(opts),
		newStatusCommand(opts),
		newVersionCommand(opts),
	)

	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(o.configFile, o.vip)
	if err != nil {
		return err
	}
	if err := cfg.ValidateClient(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closer, err := logger.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = log
	o.logCloser = closer
	return nil
}

func (o *rootOptions) close(_ *cobra.Command, _ []string) error {
	if o.logCloser == nil {
		return nil
	}
	return o.logCloser.Close()
}

// withApp открывает локальную базу на время выполнения команды
func (o *rootOptions) withApp(run func(cmd *cobra.Command, args []string, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		app, err := Open(cmd.Context(), o.cfg, o.logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := app.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("failed to close database: %w", cerr))
			}
		}()

		return run(cmd, args, app)
	}
}

func newVersionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// Конфигурация для вывода версии не нужна
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "GophSync Client\nVersion: %s\n", opts.version)
			return err
		},
	}
}
