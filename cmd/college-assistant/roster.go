package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joelkehle/college-assistant/internal/roster"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func newRosterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the institution roster database",
	}
	cmd.AddCommand(newRosterImportCmd(a), newRosterStatsCmd(a))
	return cmd
}

func newRosterImportCmd(a *app) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the stored roster with the rows of an IPEDS HD csv",
		Example: `  college-assistant roster import --csv hd2023.csv
  college-assistant roster import --csv schools.csv --roster-db ./roster.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(csvPath)
			if path == "" {
				path = strings.TrimSpace(a.cfg.Roster.CSV)
			}
			if path == "" {
				return errors.New("--csv is required")
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			parsed, err := roster.ParseCSV(f, path, a.cfg.Roster.Columns)
			if err != nil {
				return err
			}

			store, err := roster.OpenStore(a.cfg.Roster.DB)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Import(cmd.Context(), parsed); err != nil {
				return err
			}
			a.log.Info("roster_imported",
				zap.String("source", path),
				zap.String("db", a.cfg.Roster.DB),
				zap.Int("institutions", len(parsed.Records)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d institutions from %s into %s\n", len(parsed.Records), path, a.cfg.Roster.DB)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "IPEDS HD csv to import")
	return cmd
}

func newRosterStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show what the roster database holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := roster.OpenStore(a.cfg.Roster.DB)
			if err != nil {
				return err
			}
			defer store.Close()
			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(st)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
