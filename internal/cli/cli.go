package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"audiochan.click/internal/audio"
	"audiochan.click/internal/config"
	"audiochan.click/internal/fs"
	"audiochan.click/internal/journal"
)

const Version = "1.0.0"

type cliContextKey struct{}

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	configManager    *config.ConfigManager
	fsFactory        fs.Factory
	backends         map[string]func() (audio.OutputBackend, error) // nil means the real backends
	terminalDetector TerminalDetector
	journalDB        *sql.DB // Optional playback journal
	sessionID        string
}

// NewCLI creates a new CLI instance
func NewCLI() *CLI {
	slog.Debug("creating new CLI instance")

	rootCmd := &cobra.Command{
		Use:   "audiochan",
		Short: "Single-source audio playback channel",
		Long: `audiochan drives one audio playback channel: a single active source at a time,
volume and mute control, ducking, and lifecycle events for every transition.`,
		SilenceUsage: true,
		RunE:         runRootE,
	}

	rootCmd.AddCommand(newPlayCommand())
	rootCmd.AddCommand(newConsoleCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newSinksCommand())
	rootCmd.AddCommand(newVersionCommand())

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().Int("volume", 0, "Set volume (0 to 100)")
	rootCmd.PersistentFlags().Bool("mute", false, "Start muted")
	rootCmd.PersistentFlags().String("sink", "", "Audio sink to use (auto, malgo, oto, null)")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	return &CLI{
		rootCmd: rootCmd,
	}
}

// contextWithCLI stores CLI instance in context for command handlers
func contextWithCLI(ctx context.Context, cli *CLI) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cli)
}

// cliFromContext extracts CLI instance from context
func cliFromContext(ctx context.Context) *CLI {
	if ctx == nil {
		return nil
	}
	if cli, ok := ctx.Value(cliContextKey{}).(*CLI); ok {
		return cli
	}
	return nil
}

func mustCLI(cmd *cobra.Command) (*CLI, error) {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		slog.Error("CLI instance not found in context")
		return nil, fmt.Errorf("CLI instance not found in context")
	}
	return cli, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "audiochan version %s\n", Version)
}

func runRootE(cmd *cobra.Command, args []string) error {
	if version, _ := cmd.Flags().GetBool("version"); version {
		printVersion(cmd.OutOrStdout())
		return nil
	}
	return cmd.Help()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func newSinksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sinks",
		Short: "List the supported audio sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := mustCLI(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadAndValidateConfig(cmd, cli)
			if err != nil {
				return err
			}
			for _, sink := range cli.configManager.GetSupportedAudioSinks() {
				marker := ""
				if sink == cfg.AudioSink {
					marker = " (configured)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", sink, marker)
			}
			return nil
		},
	}
}

// loadAndValidateConfig loads configuration from flags and files, applies overrides, and validates
func loadAndValidateConfig(cmd *cobra.Command, cli *CLI) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	sinkFlag, _ := cmd.Flags().GetString("sink")

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = cli.configManager.LoadFromFile(configFile)
		if err != nil {
			// If config file doesn't exist, use defaults
			slog.Warn("config file not usable, using defaults", "file", configFile, "error", err)
			cfg = cli.configManager.GetDefaultConfig()
		} else {
			cfg = cli.configManager.MergeConfigs(cli.configManager.GetDefaultConfig(), cfg)
		}
	} else {
		cfg, err = cli.configManager.LoadConfig()
		if err != nil {
			slog.Error("config load failed", "error", err)
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	}

	cfg = cli.configManager.ApplyEnvironmentOverrides(cfg)

	if cmd.Flags().Changed("volume") {
		volume, _ := cmd.Flags().GetInt("volume")
		cfg.Volume = &volume
		slog.Debug("volume override applied", "value", volume)
	}
	if cmd.Flags().Changed("mute") {
		muted, _ := cmd.Flags().GetBool("mute")
		cfg.Muted = &muted
		slog.Debug("mute override applied", "value", muted)
	}
	if sinkFlag != "" {
		cfg.AudioSink = sinkFlag
		slog.Debug("audio sink override applied", "value", sinkFlag)
	}

	if err := cli.configManager.ValidateConfig(cfg); err != nil {
		slog.Error("config validation failed", "error", err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// prepareCommand is the shared preamble of every command that touches audio or the journal
func prepareCommand(cmd *cobra.Command) (*CLI, *config.Config, error) {
	cli, err := mustCLI(cmd)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return nil, nil, err
	}

	setupLogging(cfg, cli.configManager, cmd.ErrOrStderr())
	cli.initializeJournal(cfg)

	return cli, cfg, nil
}

// setupLogging sends records at the configured level to stderr and, when file
// logging is enabled, everything from debug up to a rotating log file
func setupLogging(cfg *config.Config, configManager *config.ConfigManager, stderrWriter io.Writer) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderrWriter, &slog.HandlerOptions{Level: level}),
	}

	fileEnabled := cfg.FileLogging != nil && cfg.FileLogging.Enabled
	if fileEnabled {
		logFilePath := configManager.ResolveLogFilePath(cfg.FileLogging.Filename)

		logDir := filepath.Dir(logFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			slog.Error("failed to create log directory", "path", logDir, "error", err)
			// Continue without file logging rather than failing
			fileEnabled = false
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    cfg.FileLogging.MaxSizeMB,
				MaxBackups: cfg.FileLogging.MaxBackups,
				MaxAge:     cfg.FileLogging.MaxAgeDays,
				Compress:   cfg.FileLogging.Compress,
			}
			handlers = append(handlers, slog.NewTextHandler(fileWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	}

	slog.SetDefault(slog.New(NewMultiLevelHandler(handlers...)))

	slog.Debug("logging setup completed",
		"level", level.String(),
		"handlers", len(handlers),
		"file_enabled", fileEnabled)
}

// initializeJournal opens the playback journal if enabled. Failures leave the
// journal off; playback never depends on it.
func (c *CLI) initializeJournal(cfg *config.Config) {
	if c.journalDB != nil {
		slog.Debug("playback journal already initialized, skipping")
		return
	}

	if cfg.Journal == nil || !cfg.Journal.Enabled {
		slog.Debug("playback journal disabled, skipping database initialization")
		return
	}

	dbPath := cfg.Journal.DatabasePath
	if dbPath == "" {
		var err error
		dbPath, err = journal.GetDatabasePath()
		if err != nil {
			slog.Error("failed to get journal path, continuing without journal", "error", err)
			return
		}
	}

	db, err := journal.NewDatabase(dbPath)
	if err != nil {
		slog.Error("failed to initialize playback journal, continuing without journal",
			"path", dbPath, "error", err)
		return
	}

	c.journalDB = db
	slog.Info("playback journal initialized", "path", dbPath, "session_id", c.sessionID)
}

// initializeSystems lazily fills in collaborators tests have not injected
func (c *CLI) initializeSystems() {
	if c.fsFactory == nil {
		c.fsFactory = fs.NewDefaultFactory()
	}
	if c.configManager == nil {
		c.configManager = config.NewConfigManager()
	}
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
	if c.sessionID == "" {
		c.sessionID = journal.NewSessionID()
	}
}

// Run executes the CLI with the given arguments and I/O streams
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.Debug("CLI run started", "args", args)

	// version needs no audio or journal setup
	if len(args) > 1 && (args[1] == "--version" || args[1] == "-v") {
		printVersion(stdout)
		return 0
	}

	c.initializeSystems()

	defer func() {
		if c.journalDB != nil {
			if err := c.journalDB.Close(); err != nil {
				slog.Error("error closing playback journal", "error", err)
			}
			c.journalDB = nil
		}
	}()

	if len(args) > 0 {
		args = args[1:] // Skip program name
	}
	c.rootCmd.SetArgs(args)
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)
	c.rootCmd.SetContext(contextWithCLI(context.Background(), c))

	if err := c.rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		return 1
	}

	return 0
}
