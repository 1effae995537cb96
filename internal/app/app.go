package app

import (
	"github.com/spf13/cobra"

	"github.com/Ramprasad4121/anchor-sentinel/internal/cli"
)

func BuildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "anchor-sentinel",
		Short:        "Static security scanner for Anchor (Solana) programs",
		SilenceUsage: true,
	}
	cli.AddCommands(root)
	return root
}
