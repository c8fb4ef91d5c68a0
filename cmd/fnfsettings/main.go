package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kalambet/fnfsettings/internal/config"
)

var version = "dev"

var (
	noColor bool
	remote  bool
)

var rootCmd = &cobra.Command{
	Use:   "fnfsettings",
	Short: "Manage FNF mod launcher settings",
	Long: `Manage FNF mod launcher settings.

Settings are read from the local store by default. With --remote, commands
go through the HTTP API of a running "fnfsettings serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
			noColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&remote, "remote", false, "use the HTTP API of a running server")

	rootCmd.AddCommand(getCmd, listCmd, setCmd, applyCmd, resetCmd, exportCmd, defaultsCmd)
	rootCmd.AddCommand(serveCmd, statusCmd)
	rootCmd.AddCommand(configCmd, tokenCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// loadConfig loads the app config and installs the slog default handler at
// the configured level.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	setupLogging(cfg.Log.Level)
	return cfg, nil
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
