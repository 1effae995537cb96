package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramprasad4121/anchor-sentinel/internal/plugins"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rules", Short: "List available rules"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List built-in detectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := plugins.NewRegistry()
			reg.RegisterBuiltin()
			for _, d := range reg.Detectors() {
				m := d.Meta()
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Severity, m.CWE, m.Title, strings.Join(m.Tags, ","))
			}
			return nil
		},
	})
	return cmd
}
