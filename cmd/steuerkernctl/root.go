package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "steuerkernctl",
		Short: "Run the German tax-declaration calculation engine against local CSV exports",
	}
	root.AddCommand(newRunCmd())
	return root
}
