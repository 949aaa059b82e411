package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-research/internal/analysis"
	"github.com/sells-group/prospect-research/internal/export"
	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/store"
	"github.com/sells-group/prospect-research/internal/tools"
)

var prospectsCmd = &cobra.Command{
	Use:   "prospects",
	Short: "Inspect stored prospects",
}

// -- prospects get --

var prospectsGetCmd = &cobra.Command{
	Use:   "get <prospect-id>",
	Short: "Show a prospect's metadata and documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, analysis.PreferAuto)
		if err != nil {
			return err
		}
		defer env.Close()

		content, _ := cmd.Flags().GetBool("content")
		data, err := env.Controller.GetProspectData(ctx, args[0], content)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, tools.NewGetProspectDataOutput(data))
	},
}

// -- prospects search --

var prospectsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "List prospects by name or domain, status and domain presence",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := searchFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, analysis.PreferAuto)
		if err != nil {
			return err
		}
		defer env.Close()

		found, err := env.Controller.Search(ctx, filter)
		if err != nil {
			return err
		}

		if len(found) == 0 {
			fmt.Fprintln(os.Stderr, "No prospects found.")
			return nil
		}
		formatProspects(os.Stdout, found)
		return nil
	},
}

// -- prospects export --

var prospectsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write matching prospects to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := searchFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, analysis.PreferAuto)
		if err != nil {
			return err
		}
		defer env.Close()

		found, err := env.Controller.Search(ctx, filter)
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("xlsx")
		if err := export.SaveXLSX(path, found); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d prospects to %s\n", len(found), path)
		return nil
	},
}

func addFilterFlags(c *cobra.Command) {
	c.Flags().String("query", "", "match company name or domain")
	c.Flags().String("status", "", "filter by status (pending, researching, researched, profiling, complete, failed)")
	c.Flags().String("has-domain", "", "filter by domain presence (true or false)")
	c.Flags().Int("limit", store.DefaultSearchLimit, "max number of prospects")
}

func searchFilterFromFlags(cmd *cobra.Command) (store.SearchFilter, error) {
	query, _ := cmd.Flags().GetString("query")
	status, _ := cmd.Flags().GetString("status")
	hasDomain, _ := cmd.Flags().GetString("has-domain")
	limit, _ := cmd.Flags().GetInt("limit")

	f := store.SearchFilter{
		Query:  query,
		Status: model.ProspectStatus(status),
		Limit:  limit,
	}
	if hasDomain != "" {
		v, err := strconv.ParseBool(hasDomain)
		if err != nil {
			return f, eris.Errorf("invalid --has-domain %q", hasDomain)
		}
		f.HasDomain = &v
	}
	return f, nil
}

// formatProspects writes a tabular list of prospects to out.
func formatProspects(out io.Writer, prospects []model.Prospect) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tDOMAIN\tSTATUS\tUPDATED")
	for _, p := range prospects {
		status := string(p.Status)
		if p.Status == model.StatusFailed && p.FailedFrom != "" {
			status += " (" + string(p.FailedFrom) + ")"
		}
		domain := p.Domain
		if domain == "" {
			domain = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Company, domain, status, p.UpdatedAt.UTC().Format(time.DateTime))
	}
	_ = w.Flush()
}

func init() {
	prospectsGetCmd.Flags().Bool("content", false, "include document text")

	addFilterFlags(prospectsSearchCmd)
	addFilterFlags(prospectsExportCmd)
	prospectsExportCmd.Flags().String("xlsx", "", "output workbook path (required)")
	_ = prospectsExportCmd.MarkFlagRequired("xlsx")

	prospectsCmd.AddCommand(prospectsGetCmd)
	prospectsCmd.AddCommand(prospectsSearchCmd)
	prospectsCmd.AddCommand(prospectsExportCmd)
	rootCmd.AddCommand(prospectsCmd)
}
