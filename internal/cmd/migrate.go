package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/instalytics/collector/pkg/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectRoot, err := db.ProjectRoot()
		if err != nil {
			return err
		}
		if err := db.RunMigrations(log, projectRoot); err != nil {
			return err
		}
		color.Green("Migrations applied")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current migration version",
	RunE: func(cmd *cobra.Command, args []string) error {
		version, dirty, err := db.MigrationStatus(log)
		if err != nil {
			return err
		}
		if dirty {
			color.Red("Version %d (dirty)", version)
		} else {
			color.Green("Version %d", version)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}
