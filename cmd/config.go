package cmd

import (
	"fmt"
	"os"

	"pastemd/pkg/config"
	"pastemd/pkg/errors"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pastemd configuration",
	Long:  `Show, locate and initialise the pastemd configuration file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration after defaults and PASTEMD_* environment overrides are applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		w := NewOutputWriter(outputFormat)
		if w.IsStructured() {
			return w.Write(cfg)
		}

		path, _ := config.GetConfigPath()
		fmt.Printf("# %s\n", path)
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.NewWithError(errors.ExitCodeConfig, "failed to marshal config", err)
		}
		fmt.Print(string(data))
		fmt.Printf("# history database: %s\n", cfg.HistoryPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Example: `  # Create the file if it does not exist
  pastemd config init

  # Reset an existing file to defaults
  pastemd config init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return errors.NewWithSuggestion(errors.ExitCodeConfig,
				fmt.Sprintf("configuration file already exists: %s", path),
				"Use --force to overwrite it with the defaults")
		}

		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}
