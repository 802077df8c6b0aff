/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pixelbook/internal/config"
	"pixelbook/internal/version"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints the configuration after environment overrides as YAML, followed by
the settings that an environment variable currently overrides. The Postgres
password is never shown.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pixelbook %s\n", version.String())
	},
}

// overridable lists the config keys in the order config show reports them.
var overridable = []string{
	"general.mode",
	"general.telemetry_opt_in",
	"general.disable_notifications",
	"storage.backend",
	"storage.path",
	"storage.book",
	"storage.postgres_dsn",
	"export.out_dir",
	"export.format",
	"export.bundle",
	"export.scale",
	"export.font_path",
	"logging.level",
	"logging.format",
	"logging.source",
	"logging.file",
}

func init() {
	configCmd.AddCommand(configPathCmd, configShowCmd)
	rootCmd.AddCommand(configCmd, versionCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, secret, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := cmd.OutOrStdout()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, _ = out.Write(data)
	if path, err := cfg.ResolvedStoragePath(); err == nil {
		_, _ = fmt.Fprintf(out, "# storage file: %s\n", path)
	}
	if secret != "" {
		_, _ = fmt.Fprintln(out, "# postgres password: set")
	}
	for _, key := range overridable {
		if name, ok := config.EnvOverrideFor(key); ok {
			_, _ = fmt.Fprintf(out, "# %s overridden by %s\n", key, name)
		}
	}
	return nil
}
