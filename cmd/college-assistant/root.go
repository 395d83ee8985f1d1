package main

import (
	"fmt"

	"github.com/joelkehle/college-assistant/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	cfg     config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "college-assistant",
		Short: "Answer college questions and resolve the institutions they mention",
		Long: `college-assistant sends a question to a language model, pulls institution
names out of the answer and matches them against an IPEDS roster. When the
answer names no institution it searches the College Scorecard instead.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			zc := zap.NewProductionConfig()
			if a.verbose || cfg.Log.Verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.log = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./college-assistant.yaml or ~/college-assistant.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.String("roster-db", "", "SQLite roster database (or set COLLEGE_ROSTER_DB)")
	flags.String("roster-csv", "", "read the roster straight from an IPEDS HD csv instead of the database")
	_ = a.v.BindPFlag("roster.db", flags.Lookup("roster-db"))
	_ = a.v.BindPFlag("roster.csv", flags.Lookup("roster-csv"))

	root.AddCommand(
		newAskCmd(a),
		newServeCmd(a),
		newRosterCmd(a),
		newConfigCmd(a),
	)
	return root
}
