package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/kalambet/fnfsettings/internal/config"
	"github.com/kalambet/fnfsettings/internal/settings"
)

// withBackend loads the config, opens the backend and runs fn.
func withBackend(fn func(b settingsBackend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

func parseKey(name string) (settings.Key, error) {
	key, ok := settings.LookupKey(name)
	if !ok {
		names := make([]string, 0, len(settings.Keys()))
		for _, k := range settings.Keys() {
			names = append(names, string(k))
		}
		return "", fmt.Errorf("unknown setting %q (valid: %s)", name, strings.Join(names, ", "))
	}
	return key, nil
}

func writeSettings(w io.Writer, s settings.Settings, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		out, err := yaml.Marshal(s)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case "text", "":
		for _, k := range settings.Keys() {
			fmt.Fprintf(w, "  %s = %v\n", colorize(color.Bold, string(k)), s.Value(k))
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (use text, json or yaml)", format)
	}
}

// --- get ---

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		return withBackend(func(b settingsBackend) error {
			v, err := b.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	},
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every setting, defaults filled in",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withBackend(func(b settingsBackend) error {
			s, err := b.All(cmd.Context())
			if err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), s, format)
		})
	},
}

func init() {
	listCmd.Flags().String("format", "text", "output format: text, json or yaml")
}

// --- set ---

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Save one setting",
	Long: `Save one setting.

Examples:
  fnfsettings set theme light
  fnfsettings set useSystemTheme false
  fnfsettings set installLocation "D:\Games\FNF Mods"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		value, err := settings.ParseValue(key, args[1])
		if err != nil {
			return err
		}
		return withBackend(func(b settingsBackend) error {
			if err := b.Save(cmd.Context(), settings.Patch{{Key: key, Value: value}}); err != nil {
				return err
			}
			printSuccess("Set %s = %v", key, value)
			return nil
		})
	},
}

// --- apply ---

var applyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Save several settings from a JSON or YAML file",
	Long: `Save several settings from a JSON or YAML file ("-" reads JSON from stdin).

Keys are written in file order. If a write fails, keys before it stay saved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readPatch(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		return withBackend(func(b settingsBackend) error {
			if err := b.Save(cmd.Context(), p); err != nil {
				return err
			}
			printSuccess("Applied %d settings", len(p))
			return nil
		})
	},
}

func readPatch(stdin io.Reader, path string) (settings.Patch, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return settings.ParseYAMLPatch(data)
	default:
		return settings.ParsePatch(data)
	}
}

// --- reset ---

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every saved setting",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will reset ALL settings to defaults. Use --confirm to proceed.")
			return nil
		}
		return withBackend(func(b settingsBackend) error {
			printStep("Clearing settings...")
			if err := b.Clear(cmd.Context()); err != nil {
				return err
			}
			printSuccess("All settings reset to defaults")
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().Bool("confirm", false, "confirm reset")
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		if format == "text" {
			return fmt.Errorf("export supports json or yaml")
		}

		return withBackend(func(b settingsBackend) error {
			s, err := b.All(cmd.Context())
			if err != nil {
				return err
			}

			if output == "" {
				return writeSettings(cmd.OutOrStdout(), s, format)
			}
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			if err := writeSettings(f, s, format); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printSuccess("Settings exported to %s", output)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().String("output", "", "output file path (default: stdout)")
	exportCmd.Flags().String("format", "json", "output format: json or yaml")
}

// --- defaults ---

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the built-in defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return writeSettings(cmd.OutOrStdout(), settings.Defaults(), format)
	},
}

func init() {
	defaultsCmd.Flags().String("format", "text", "output format: text, json or yaml")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  (%s)\n", colorize(color.Bold, k.Key), k.Value, k.EnvVar)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(color.Bold, "settings path"), cfg.SettingsPath())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- token ---

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the HTTP API bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		rotate, _ := cmd.Flags().GetBool("rotate")

		kc := config.NewKeychain()
		var (
			tok string
			err error
		)
		if rotate {
			tok, err = config.RotateAPIToken(kc)
		} else {
			tok, err = config.GetAPIToken(kc)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		if rotate {
			printWarning("Token rotated; restart a running server to apply it")
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().Bool("rotate", false, "generate and store a new token")
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fnfsettings version %s\n", version)
	},
}
