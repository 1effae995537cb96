package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramprasad4121/anchor-sentinel/internal/config"
	"github.com/Ramprasad4121/anchor-sentinel/internal/engine"
)

// newIndexCmd prints the program index built by pass 1, which is handy when
// a detector resolves a context struct or constant unexpectedly.
func newIndexCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Print the program index (structs, accounts, constants, instructions) as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			cfg, err := engine.LoadConfig(path, configPath)
			if err != nil {
				return err
			}
			idx, err := engine.BuildIndex(cmd.Context(), path, cfg)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(idx.Dump(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: search for "+config.FileName+" upwards)")
	return cmd
}
