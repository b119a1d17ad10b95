package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/catalogbot/core/cmd"
	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/internal/app"
	"github.com/m3rciful/catalogbot/internal/transfer"
)

// withServices opens the store without connecting to Telegram.
func withServices(ctx context.Context, configPath string, fn func(*app.Services) error) (err error) {
	path, err := corecmd.ResolveConfigPath(configPath, configEnvVar, defaultConfigPath)
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfig(path)
	if err != nil {
		return err
	}
	svc, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, svc.Close(), logger.Shutdown())
	}()
	return fn(svc)
}

func newExportCmd(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), *configPath, func(svc *app.Services) error {
				doc, err := svc.Transfer.Export(cmd.Context())
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					if err := doc.Encode(cmd.OutOrStdout()); err != nil {
						return err
					}
				} else if err := writeDocument(out, doc); err != nil {
					return err
				}
				cmd.PrintErrln("exported", doc.Stats())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func writeDocument(path string, doc transfer.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := doc.Encode(f); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}

func newImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Replace the catalog with a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			doc, err := transfer.ParseDocument(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return withServices(cmd.Context(), *configPath, func(svc *app.Services) error {
				stats, err := svc.Transfer.Import(cmd.Context(), doc)
				if err != nil {
					return err
				}
				cmd.Println("imported", stats)
				return nil
			})
		},
	}
}

func newBackupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped copy of the sqlite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), *configPath, func(svc *app.Services) error {
				art, err := svc.Transfer.Backup(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("%s (%s)\n", art.Path, humanize.Bytes(uint64(art.Size)))
				return nil
			})
		},
	}
}

func newRestoreCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file.db>",
		Short: "Replace the sqlite database, keeping the current one as a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := transfer.CheckSQLite(args[0]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return withServices(cmd.Context(), *configPath, func(svc *app.Services) error {
				prev, err := svc.Transfer.Replace(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				cmd.Println("restored; previous database saved as", prev.Path)
				return nil
			})
		},
	}
}
