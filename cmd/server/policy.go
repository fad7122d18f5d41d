package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledenbeheer/internal/application/orchestrators"
	"ledenbeheer/internal/config"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect or replace the VOG policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored policy as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()
		return config.WritePolicy(cmd.OutOrStdout(), a.holder.Snapshot())
	},
}

var policyLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace the stored policy from a YAML file",
	Long: `Replace the stored policy as a whole from a YAML file.

Examples:
  # Load the policy kept under version control
  ledenbeheer policy load -f vog-policy.yaml`,
	RunE: runPolicyLoad,
}

func init() {
	policyLoadCmd.Flags().StringP("file", "f", "", "YAML policy file (required)")
	_ = policyLoadCmd.MarkFlagRequired("file")

	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyLoadCmd)
}

func runPolicyLoad(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	next, err := config.ReadPolicyFile(filename)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := orchestrators.ExecuteSaveVOGPolicy(cmd.Context(), orchestrators.SaveVOGPolicyInput{
		Policy: next,
	}, orchestrators.SaveVOGPolicyDeps{
		Holder:         a.holder,
		Store:          a.stores.PolicyStore,
		VolunteerStore: a.stores.VolunteerStore,
		AuditStore:     a.stores.AuditStore,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "policy loaded from %s\n", filename)
	if res.PeopleRecalculated != nil {
		fmt.Fprintf(out, "exempt committees changed, %d volunteer(s) affected\n", *res.PeopleRecalculated)
	}
	return nil
}
