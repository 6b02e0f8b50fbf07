package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the relay configuration",
	}
	configCmd.AddCommand(newConfigShowCmd(), newConfigSaveCmd())
	return configCmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current relay configuration (password masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			config, err := apiClient().GetConfig()
			if err != nil {
				return err
			}
			if formatter.jsonMode {
				return formatter.Print(map[string]any{"config": config})
			}
			return formatter.Print(formatConfig(config))
		},
	}
}

func newConfigSaveCmd() *cobra.Command {
	var withRestart bool

	saveCmd := &cobra.Command{
		Use:   "save key=value [key=value ...]",
		Short: "Save the relay configuration",
		Long: `Save the relay configuration from key=value pairs, for example:

  xmproxyctl config save user=alice@example.org pw=secret bosh=true

The daemon validates the configuration and snapshots the previous file
before overwriting it. With --restart the relay is restarted afterwards.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			record, err := parseConfigArgs(args)
			if err != nil {
				return err
			}

			result, err := apiClient().SaveConfig(record, withRestart)
			if err != nil {
				return err
			}

			data := map[string]any{}
			if result.Restart != nil {
				data["restart"] = result.Restart
				if result.Restart.State != "succeeded" {
					if formatter.jsonMode {
						formatter.Print(result)
					}
					return fmt.Errorf("%s: %s", result.Message, result.Restart.Message)
				}
			}
			return formatter.Success(result.Message, data)
		},
	}
	saveCmd.Flags().BoolVar(&withRestart, "restart", false, "restart the relay after saving")
	return saveCmd
}
