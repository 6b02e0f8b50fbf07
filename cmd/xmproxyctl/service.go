package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the relay connection status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			status, err := apiClient().Status()
			if err != nil {
				return err
			}
			if formatter.jsonMode {
				return formatter.Print(map[string]any{"status": status})
			}
			return formatter.Print("Relay status: " + status)
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show daemon health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			info, err := apiClient().Health()
			if err != nil {
				return err
			}
			if formatter.jsonMode {
				return formatter.Print(info)
			}
			return formatter.Print(fmt.Sprintf("%s: %s (up %.0fs)", info.Service, info.Status, info.UptimeSeconds))
		},
	}
}

func newRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the relay service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			result, err := apiClient().RestartService()
			if err != nil {
				return err
			}
			if result.State != "succeeded" {
				if formatter.jsonMode {
					formatter.Print(result)
				}
				return fmt.Errorf("restart failed (%s): %s", result.Strategy, result.Message)
			}
			return formatter.Success(result.Message, map[string]any{"restart": result})
		},
	}
}

func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Ask the relay to go online",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			status, err := apiClient().Connect()
			if err != nil {
				return err
			}
			return formatter.Success("Connect requested, relay status: "+status, map[string]any{"status": status})
		},
	}
}

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Ask the relay to go offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			status, err := apiClient().Disconnect()
			if err != nil {
				return err
			}
			return formatter.Success("Disconnect requested, relay status: "+status, map[string]any{"status": status})
		},
	}
}
