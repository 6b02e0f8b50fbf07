package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage configuration backups",
	}
	backupCmd.AddCommand(newBackupListCmd(), newBackupRestoreCmd())
	return backupCmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configuration backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			backups, err := apiClient().ListBackups()
			if err != nil {
				return err
			}
			if formatter.jsonMode {
				return formatter.Print(map[string]any{"backups": backups})
			}
			if len(backups) == 0 {
				return formatter.Print("No backups stored")
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "NAME\tCREATED")
			for _, backup := range backups {
				fmt.Fprintf(writer, "%s\t%s\n", backup.Name, backup.Timestamp.Format("2006-01-02 15:04:05"))
			}
			return writer.Flush()
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Restore a configuration backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			if err := apiClient().RestoreBackup(args[0]); err != nil {
				return err
			}
			return formatter.Success("Backup "+args[0]+" restored", nil)
		},
	}
}
