// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/confweave/confweave/internal/config"

	"github.com/spf13/cobra"
)

func (c *cli) newConfigCommand() *cobra.Command {
	optional := map[string]string{settingsOptionalAnnotation: "true"}

	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect confweave settings",
		Long: `Inspect confweave settings.

Settings are read from the first of:
  - the file given with --settings
  - Linux: ~/.config/confweave/config.cue
    macOS: ~/Library/Application Support/confweave/config.cue
    Windows: %APPDATA%\confweave\config.cue
  - ./confweave.cue

CONFWEAVE_* environment variables override file values.`,
		Annotations: optional,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		RunE: func(*cobra.Command, []string) error {
			c.showConfig()
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show where settings are read from",
		Annotations: optional,
		RunE: func(*cobra.Command, []string) error {
			return c.showConfigPath()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective settings as CUE",
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprint(c.app.stdout, config.GenerateCUE(c.settings))
			return nil
		},
	})

	dumpSchema := &cobra.Command{
		Use:         "schema",
		Short:       "Print the CUE schema settings files are validated against",
		Annotations: optional,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprint(c.app.stdout, config.Schema())
			return nil
		},
	}
	cfgCmd.AddCommand(dumpSchema)

	var local bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a settings file with the defaults",
		Annotations: optional,
		RunE: func(*cobra.Command, []string) error {
			return c.initConfig(local)
		},
	}
	initCmd.Flags().BoolVar(&local, "local", false, "write ./"+config.LocalConfigFile+" instead of the user config file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func (c *cli) showConfig() {
	out := c.app.stdout
	cfg := c.settings
	row := func(key string, value any) {
		fmt.Fprintf(out, "%s: %s\n", PathStyle.Render(key), SuccessStyle.Render(fmt.Sprint(value)))
	}

	fmt.Fprintln(out, TitleStyle.Render("Current Settings"))
	fmt.Fprintln(out)
	if c.settingsPath != "" {
		row("settings file", c.settingsPath)
	} else {
		fmt.Fprintf(out, "%s: %s\n", PathStyle.Render("settings file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(out)

	row("manifest", cfg.Manifest)
	row("banner", fmt.Sprintf("%q", cfg.Banner))
	row("keep_going", cfg.KeepGoing)
	row("log_level", cfg.LogLevel)
	row("regex_cache_size", cfg.RegexCacheSize)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", PathStyle.Render("watch"))
	row("  debounce", cfg.Watch.Debounce)
	row("  patterns", listOrNone(cfg.Watch.Patterns))
	row("  ignore", listOrNone(cfg.Watch.Ignore))
	row("  clear_screen", cfg.Watch.ClearScreen)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func (c *cli) showConfigPath() error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.app.stdout, "Config directory: %s\n", dir)
	fmt.Fprintf(c.app.stdout, "Config file: %s\n", path)
	fmt.Fprintf(c.app.stdout, "Local file: ./%s\n", config.LocalConfigFile)
	if c.settingsPath != "" {
		fmt.Fprintf(c.app.stdout, "In use: %s\n", c.settingsPath)
	}
	return nil
}

func (c *cli) initConfig(local bool) error {
	path := config.LocalConfigFile
	if !local {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}
	created, err := config.CreateDefaultConfig(path)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(c.app.stdout, "%s %s already exists\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(c.app.stdout, "%s Created default settings at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
