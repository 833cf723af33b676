// Package core contains code for the core subcommands
package core

import (
	"github.com/flashbots/streamscan/common"
	"github.com/spf13/cobra"
)

var log = common.Logger

var CoreCmd = &cobra.Command{
	Use:   "core",
	Short: "core subcommand",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	CoreCmd.AddCommand(resolveBuildersCmd)
	CoreCmd.AddCommand(backfillEventsCmd)
	CoreCmd.AddCommand(showSnapshotCmd)
}
