package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogero/filmoteca/internal/config"
	"github.com/ogero/filmoteca/internal/store"
)

func newAPIKeyCommand() *cobra.Command {
	apiKeyCmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the metadata provider API key",
	}

	apiKeyCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show whether an API key is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if st.APIKey() == "" {
				cmd.Println("no api key stored")
				return nil
			}
			cmd.Println("api key is stored")
			return nil
		},
	})

	apiKeyCmd.AddCommand(&cobra.Command{
		Use:   "set <key>",
		Short: "Store the metadata provider API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SaveAPIKey(args[0]); err != nil {
				return fmt.Errorf("failed to store.Store.SaveAPIKey: %w", err)
			}
			cmd.Println("api key stored")
			return nil
		},
	})

	return apiKeyCmd
}

func openStore() (store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to config.Load: %w", err)
	}

	st, err := store.Open(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to store.Open: %w", err)
	}

	return st, nil
}
