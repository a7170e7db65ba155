package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root solgate command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "solgate",
		Short:         "solgate is a resilient multi-provider Solana RPC gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// A missing .env file is fine; real env vars still apply.
			_ = godotenv.Load()
		},
	}

	root.PersistentFlags().StringP("config", "c", "solgate.yaml", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}
