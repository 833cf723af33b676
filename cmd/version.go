package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of streamscan",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("streamscan %s\n", Version)
	},
}
