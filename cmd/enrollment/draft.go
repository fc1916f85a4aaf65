package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-enrollment/pkg/draft"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Inspect or clear the saved draft",
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved draft as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeKV, err := openDraftStore(cmd)
		if err != nil {
			return err
		}
		defer closeKV()

		rec, ok := store.Load(cmd.Context())
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "no draft saved under %q\n", store.Key())
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var draftClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the saved draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeKV, err := openDraftStore(cmd)
		if err != nil {
			return err
		}
		defer closeKV()

		store.Clear(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "draft %q cleared\n", store.Key())
		return nil
	},
}

func init() {
	draftCmd.AddCommand(draftShowCmd, draftClearCmd)
}

func openDraftStore(cmd *cobra.Command) (*draft.Store, func() error, error) {
	kv, closeKV, err := openKV(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	store := draft.NewStore(kv,
		draft.WithKey(cfg.Storage.Key),
		draft.WithLogger(logger),
	)
	return store, closeKV, nil
}
