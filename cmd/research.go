package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-research/internal/tools"
)

var (
	// strategy selects the analysis strategy for research and profile runs.
	strategy string

	researchCompany string
	profileID       string
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research a company by name or domain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pref, err := parsePreference(strategy)
		if err != nil {
			return err
		}
		env, err := initEnv(ctx, pref)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Controller.Research(ctx, researchCompany)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, tools.NewResearchOutput(res))
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Write the prospect profile for a researched prospect",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pref, err := parsePreference(strategy)
		if err != nil {
			return err
		}
		env, err := initEnv(ctx, pref)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Controller.CreateProfile(ctx, profileID)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, tools.NewProfileOutput(res))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategy, "strategy", "auto", "analysis strategy: auto, ai or rules")
	researchCmd.Flags().StringVar(&researchCompany, "company", "", "company name or website domain (required)")
	_ = researchCmd.MarkFlagRequired("company")
	profileCmd.Flags().StringVar(&profileID, "id", "", "prospect ID returned by research (required)")
	_ = profileCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(profileCmd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
