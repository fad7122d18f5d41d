package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledenbeheer/internal/application/orchestrators"
)

var volunteersCmd = &cobra.Command{
	Use:   "volunteers",
	Short: "Manage the volunteer directory",
}

var volunteersImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import volunteers from a CSV export",
	Long: `Import volunteers from a member-directory CSV export.

Required columns are ID and FIRST_NAME. FUNCTIONS and COMMITTEES take
';'-separated values. VOG_DATE seeds the certificate date of volunteers
that have none recorded; with --update a later VOG_DATE replaces it.

Examples:
  # Preview without writing
  ledenbeheer volunteers import -f leden.csv --dry-run

  # Overwrite existing volunteers with the CSV values
  ledenbeheer volunteers import -f leden.csv --update`,
	RunE: runVolunteersImport,
}

func init() {
	volunteersImportCmd.Flags().StringP("file", "f", "", "CSV file to import (required)")
	volunteersImportCmd.Flags().Bool("dry-run", false, "Validate and count rows without writing")
	volunteersImportCmd.Flags().Bool("update", false, "Update volunteers that already exist")
	_ = volunteersImportCmd.MarkFlagRequired("file")

	volunteersCmd.AddCommand(volunteersImportCmd)
}

func runVolunteersImport(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	update, _ := cmd.Flags().GetBool("update")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := orchestrators.ExecuteImportVolunteers(cmd.Context(), orchestrators.ImportVolunteersInput{
		Reader:     f,
		DryRun:     dryRun,
		UpdateMode: update,
	}, orchestrators.ImportVolunteersDeps{
		VolunteerStore: a.stores.VolunteerStore,
		RecordStore:    a.stores.RecordStore,
		AuditStore:     a.stores.AuditStore,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.DryRun {
		fmt.Fprintln(out, "dry run, nothing written")
	}
	fmt.Fprintf(out, "rows: %d  created: %d  updated: %d  skipped: %d  vog dates seeded: %d  renewed: %d\n",
		res.Total, res.Created, res.Updated, res.Skipped, res.SeededVOG, res.RenewedVOG)
	for _, col := range res.Unknown {
		fmt.Fprintf(out, "ignored column %q\n", col)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(out, "row %d: %s\n", e.Row, e.Message)
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("%d row(s) failed", len(res.Errors))
	}
	return nil
}
