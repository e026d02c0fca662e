package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dukerupert/devdiary/internal/backup"
	"github.com/dukerupert/devdiary/internal/server"
	"github.com/dukerupert/devdiary/internal/store"
	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Run, list or decrypt encrypted database backups",
	}
	cmd.AddCommand(backupRunCmd())
	cmd.AddCommand(backupListCmd())
	cmd.AddCommand(backupDecryptCmd())
	return cmd
}

func newBackupManager() (*backup.Manager, func(), error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	m := backup.NewManager(server.BackupConfig(cfg.Backup), db, store.NewBackupStore(db), logger.With("component", "backup"), nil)
	return m, func() { db.Close() }, nil
}

func backupRunCmd() *cobra.Command {
	var passphrase string
	var prompt bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Upload an encrypted snapshot now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt {
				var err error
				if passphrase, err = promptPassword("Backup passphrase: "); err != nil {
					return err
				}
			}

			m, closeDB, err := newBackupManager()
			if err != nil {
				return err
			}
			defer closeDB()

			b, err := m.RunNow(cmd.Context(), passphrase)
			if err != nil {
				return err
			}
			if err := m.Cleanup(cmd.Context()); err != nil {
				logger.Warn("backup cleanup", "error", err)
			}
			fmt.Printf("uploaded %s (%d bytes)\n", b.ObjectKey, b.SizeBytes)
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "encryption passphrase (default backup.passphrase)")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "read the passphrase from the terminal")
	return cmd
}

func backupListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show backup history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeDB, err := newBackupManager()
			if err != nil {
				return err
			}
			defer closeDB()

			backups, err := m.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSIZE\tCREATED\tKEY")
			for _, b := range backups {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", b.ID, b.Status, b.SizeBytes, b.CreatedAt.Local().Format("2006-01-02 15:04"), b.ObjectKey)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of backups to show")
	return cmd
}

func backupDecryptCmd() *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "decrypt <encrypted-file> <output.db>",
		Short: "Decrypt a downloaded backup into a SQLite file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				passphrase = cfg.Backup.Passphrase
			}
			if passphrase == "" {
				var err error
				if passphrase, err = promptPassword("Backup passphrase: "); err != nil {
					return err
				}
			}

			if err := backup.DecryptFile(args[0], args[1], passphrase); err != nil {
				return err
			}
			fmt.Printf("decrypted %s -> %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "decryption passphrase (default backup.passphrase, else prompt)")
	return cmd
}
