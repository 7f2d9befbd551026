package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dorcha-inc/vigil/internal/config"
	"github.com/dorcha-inc/vigil/internal/execution"
	"github.com/dorcha-inc/vigil/internal/plugins"
	"github.com/dorcha-inc/vigil/internal/tui"
)

// newPluginsCmd creates the plugins command
func newPluginsCmd(flags *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List built-in plugins and whether they are enabled",
		Long: `List the built-in plugins with their version, default state and the
effective state after applying the plugins map from the configuration and
VIGIL_PLUGIN_<NAME>_ENABLED environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(flags.configPath)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %w", err)
			}

			registry := execution.NewRegistry()
			if err := plugins.RegisterBuiltins(registry); err != nil {
				return err
			}
			rows := pluginRows(registry, cfg)

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(rows)
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), tui.Default().RenderPluginTable(rows))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func pluginRows(registry *execution.Registry, cfg *config.Config) []tui.PluginRow {
	enabled := registry.EnabledNames(cfg)

	rows := []tui.PluginRow{}
	for _, d := range registry.Descriptors() {
		hooks := []string{}
		if d.HasPreHook() {
			hooks = append(hooks, "pre")
		}
		if d.HasPostHook() {
			hooks = append(hooks, "post")
		}
		if len(hooks) == 0 {
			hooks = append(hooks, "-")
		}

		rows = append(rows, tui.PluginRow{
			Name:             d.Name(),
			Version:          d.Version(),
			Homepage:         d.Homepage(),
			EnabledByDefault: d.EnabledByDefault(),
			Enabled:          enabled.Contains(d.Name()),
			Hooks:            strings.Join(hooks, ","),
			StateType:        d.StateType(),
		})
	}
	return rows
}
