package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dmwm/dbs3-uploader/internal/cliout"
	"github.com/dmwm/dbs3-uploader/internal/config"
)

var configShowOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect uploader configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the loaded configuration",
	Long: `Display the uploader configuration as resolved from environment
variables, the config file, and defaults.

Examples:
  # Show as YAML
  dbs3-uploader config show

  # Show as JSON
  dbs3-uploader config show --output json`,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", "yaml", "Output format (yaml|json)")
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if configShowOutput == "json" {
		return cliout.PrintJSON(os.Stdout, cfg)
	}
	return cliout.PrintYAML(os.Stdout, cfg)
}
