package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/doublegit-go/internal/buildinfo"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of doublegit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Read().String())
		},
	}
}
