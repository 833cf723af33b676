// Package util contains code for the util subcommands
package util

import (
	"github.com/flashbots/streamscan/common"
	"github.com/spf13/cobra"
)

var log = common.Logger

var UtilCmd = &cobra.Command{
	Use:   "util",
	Short: "util subcommand",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	UtilCmd.AddCommand(inspectContractCmd)
}
