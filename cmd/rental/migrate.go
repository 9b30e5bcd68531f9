package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rental-backend/migrations"
	"rental-backend/observability"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "List or run data migrations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, m := range migrations.All() {
				fmt.Fprintf(w, "%s\t%s\n", m.Name, m.Description)
			}
			return w.Flush()
		},
	}

	var dryRun bool
	run := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a migration against the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := migrations.Lookup(args[0]); !ok {
				return fmt.Errorf("unknown migration %q", args[0])
			}
			logger, err := observability.NewLogger(v.GetString("service_name"), v.GetString("log_level"), v.GetString("log_format"))
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			db, closeDB, err := openStore(ctx, v, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			report, err := migrations.Run(ctx, args[0], migrations.Env{DB: db, Logger: logger, DryRun: dryRun})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	run.Flags().BoolVar(&dryRun, "dry-run", false, "count changes without writing")

	cmd.AddCommand(list, run)
	return cmd
}
