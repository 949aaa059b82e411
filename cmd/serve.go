package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/server"
)

var serveHTTP string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prospect tools over MCP",
	Long: "Serves the prospect tools over MCP on stdio, or over streamable HTTP with --http ADDR. " +
		"--http config listens on server.addr.",
	Args: cobra.NoArgs,
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

		srv := server.New(version, env.Controller,
			server.WithMetrics(env.Metrics),
			server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		)

		if serveHTTP == "" {
			return srv.RunStdio(ctx)
		}

		addr := serveHTTP
		if addr == "config" {
			addr = cfg.Server.Addr
		}
		err = srv.ListenAndServe(ctx, addr)
		zap.L().Info("shutdown complete")
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", `serve streamable HTTP on this address (e.g. ":8080", or "config" for server.addr) instead of stdio`)
	rootCmd.AddCommand(serveCmd)
}
