package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/logging"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	logLevel string
	logDev   bool
}

// newRootCommand builds the command tree
func newRootCommand() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "cdpgate",
		Short: "Reverse proxy and endpoint resolver for the Chrome DevTools Protocol.",
		Long: `cdpgate relays CDP HTTP and WebSocket traffic to a browser that is only
reachable on an internal address, rewriting debugger URLs so clients connect
back through the proxy. "cdpgate resolve" finds a working debugger URL among
several candidate addresses.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.BoolVar(&g.logDev, "log-dev", false, "human readable logs (env LOG_DEV)")

	rootCmd.AddCommand(newServeCommand(g))
	rootCmd.AddCommand(newResolveCommand(g))

	return rootCmd
}

// logger applies the persistent flags over the LOG_* settings
func (g *globalOptions) logger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	level, dev := cfg.Logging.Level, cfg.Logging.Development
	if cmd.Flags().Changed("log-level") {
		level = g.logLevel
	}
	if cmd.Flags().Changed("log-dev") {
		dev = g.logDev
	}
	return logging.FromSettings(level, dev)
}
