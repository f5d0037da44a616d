// Command plannerctl manages planner data and the Postgres schema outside
// the API server.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	cmd := newRootCmd(defaultDeps())
	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type deps struct {
	loadEnv  func(...string) error
	getenv   func(string) string
	openDB   func(driverName, dataSourceName string) (*sql.DB, error)
	migrateF func(db *sql.DB, direction string, steps int) error
}

func defaultDeps() deps {
	return deps{
		loadEnv:  godotenv.Load,
		getenv:   os.Getenv,
		openDB:   sql.Open,
		migrateF: performMigrations,
	}
}

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "plannerctl",
		Short: "Manage the content planner and its database",
		Long: `plannerctl works on the same planner backends as the API server
(file, postgres or redis), selected with PLANNER_BACKEND or --backend.

Examples:
  plannerctl list
  plannerctl export -o planner.yaml
  plannerctl import -i planner.yaml --backend postgres
  plannerctl copy --from file --to redis
  plannerctl migrate --direction up`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if d.loadEnv != nil {
				_ = d.loadEnv()
			}
		},
	}
	root.AddCommand(newListCmd(d))
	root.AddCommand(newExportCmd(d))
	root.AddCommand(newImportCmd(d))
	root.AddCommand(newCopyCmd(d))
	root.AddCommand(newMigrateCmd(d))
	return root
}
