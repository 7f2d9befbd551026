package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dorcha-inc/vigil/internal/config"
	"github.com/dorcha-inc/vigil/internal/core"
)

const maskedToken = "redacted"

// newConfigCmd creates the config command
func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the vigil configuration",
	}

	cmd.AddCommand(newConfigShowCmd(flags))
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd(flags *globalFlags) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		Long: `Print the configuration after applying defaults, the config file and
VIGIL_* environment variables. The token is masked unless --reveal is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(flags.configPath)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %w", err)
			}

			shown := cfg.Clone()
			if !reveal && shown.Token != "" {
				shown.Token = maskedToken
			}

			data, err := shown.YAML()
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				core.MustFprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show the token in clear text")

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		path  string
		token string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default vigil.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check %s: %w", path, err)
			}

			cfg := config.Default()
			cfg.Token = token
			if err := cfg.Save(path); err != nil {
				return err
			}

			core.MustFprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			if token == "" {
				core.MustFprintf(cmd.ErrOrStderr(), "warning: no token set; add one to the file or export VIGIL_TOKEN\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", config.ProjectConfigFileName, "Where to write the configuration")
	cmd.Flags().StringVar(&token, "token", "", "Project token to store in the file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
