package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xmproxy/webapp/internal/client"
	"github.com/xmproxy/webapp/internal/version"
)

var (
	rootCmd   *cobra.Command
	serverURL string
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Execute builds the command tree and runs it.
func Execute() error {
	rootCmd = &cobra.Command{
		Use:           "xmproxyctl",
		Short:         "Control the xmproxy webapp daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = version.FormatVersion(version.String())
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "daemon base URL (default http://127.0.0.1:8006 or XMPROXY_WEBAPP_URL)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")

	rootCmd.AddCommand(
		newStatusCmd(),
		newHealthCmd(),
		newConfigCmd(),
		newPresetCmd(),
		newBackupCmd(),
		newRestartCmd(),
		newConnectCmd(),
		newDisconnectCmd(),
	)

	return rootCmd.Execute()
}

func apiClient() *client.Client {
	return client.New(serverURL)
}

// OutputFormatter handles output in JSON or human-readable format.
type OutputFormatter struct {
	jsonMode bool
}

func newOutputFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &OutputFormatter{jsonMode: jsonMode}
}

// Print outputs data in the appropriate format.
func (f *OutputFormatter) Print(data any) error {
	if f.jsonMode {
		jsonBytes, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	switch v := data.(type) {
	case string:
		fmt.Println(v)
	default:
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	}
	return nil
}

// Success outputs a success message, with extra fields in JSON mode.
func (f *OutputFormatter) Success(message string, data map[string]any) error {
	if f.jsonMode {
		output := map[string]any{
			"success": true,
			"message": message,
		}
		for k, v := range data {
			output[k] = v
		}
		return f.Print(output)
	}
	fmt.Println(message)
	return nil
}
