package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dukerupert/devdiary/internal/auth"
	"github.com/dukerupert/devdiary/internal/export"
	"github.com/dukerupert/devdiary/internal/model"
	"github.com/dukerupert/devdiary/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default categories and tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.Seed(cmd.Context(), db); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			logger.Info("seeded default categories and tags")
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all entries as json, markdown or xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := store.NewEntryStore(db).List(cmd.Context(), model.EntryFilter{})
			if err != nil {
				return fmt.Errorf("list entries: %w", err)
			}

			if out == "" {
				out = f.Filename()
			}
			var w io.Writer = os.Stdout
			if out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer file.Close()
				w = file
			}

			if err := export.Write(w, f, entries, time.Now()); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			if out != "-" {
				logger.Info("exported entries", "count", len(entries), "file", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json, markdown or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default dev-diary-export.<ext>)")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for auth.password_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			if pass == "" {
				return errors.New("password must not be empty")
			}
			confirm, err := promptPassword("Confirm: ")
			if err != nil {
				return err
			}
			if pass != confirm {
				return errors.New("passwords do not match")
			}

			hash, err := auth.HashPassword(pass)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(pass)), nil
}
