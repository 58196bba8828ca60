package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/signlang/internal/bootstrap"
	"github.com/kdimtricp/signlang/internal/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dbCfg := bootstrap.DatabaseConfig(cfg)
			dbCfg.SkipMigrations = true
			db, err := database.NewDB(cmd.Context(), dbCfg, ctx.log())
			if err != nil {
				return err
			}
			defer db.Close()

			migrator := database.NewMigrator(db)
			if !statusOnly {
				if err := migrator.Up(cmd.Context()); err != nil {
					return err
				}
			}

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("read migration status: %w", err)
			}

			rows := make([][]string, 0, len(statuses))
			for _, st := range statuses {
				applied := ""
				if !st.AppliedAt.IsZero() {
					applied = st.AppliedAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", st.Source.Version),
					string(st.State),
					applied,
					st.Source.Path,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", db.Type())
			renderTable(out,
				[]string{"Version", "State", "Applied", "Source"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft})
			return nil
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "Report migration status without applying anything")
	return cmd
}
