package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	serviceName    = "filmoteca"
	serviceVersion = "0.1.0"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "catalog",
		Short:         "Personal movie catalog service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env file is fine, the environment wins anyway.
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAPIKeyCommand())

	return rootCmd
}
