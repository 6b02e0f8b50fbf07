package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPresetCmd() *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage named configuration presets",
	}
	presetCmd.AddCommand(
		newPresetListCmd(),
		newPresetShowCmd(),
		newPresetSaveCmd(),
		newPresetDeleteCmd(),
	)
	return presetCmd
}

func newPresetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			presets, err := apiClient().ListPresets()
			if err != nil {
				return err
			}
			if formatter.jsonMode {
				return formatter.Print(map[string]any{"presets": presets})
			}
			if len(presets) == 0 {
				return formatter.Print("No presets stored")
			}
			for _, name := range presets {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newPresetShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a preset's configuration (password masked)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			config, err := apiClient().GetPreset(args[0])
			if err != nil {
				return err
			}
			if formatter.jsonMode {
				return formatter.Print(map[string]any{"name": args[0], "config": config})
			}
			return formatter.Print(formatConfig(config))
		},
	}
}

func newPresetSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> key=value [key=value ...]",
		Short: "Store a configuration preset",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			record, err := parseConfigArgs(args[1:])
			if err != nil {
				return err
			}

			saved, err := apiClient().SavePreset(args[0], record)
			if err != nil {
				return err
			}
			return formatter.Success("Preset saved as "+saved, map[string]any{"name": saved})
		},
	}
}

func newPresetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			if err := apiClient().DeletePreset(args[0]); err != nil {
				return err
			}
			return formatter.Success("Preset "+args[0]+" deleted", nil)
		},
	}
}
