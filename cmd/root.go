package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/config"
	"github.com/sells-group/prospect-research/internal/workflow"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "prospect-research",
	Short: "Sales prospect research assistant",
	Long: "Collects public information about a company from several sources, analyses it and " +
		"writes a research report and prospect profile. Runs as an MCP server or from the command line.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return workflow.Configuration("load config", err)
		}
		if err := c.Validate(); err != nil {
			return workflow.Configuration("validate config", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return workflow.Configuration("init logger", eris.Wrap(err, "init logger"))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
