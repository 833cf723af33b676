// Package cmd contains the cobra command line setup
package cmd

import (
	"fmt"
	"os"

	"github.com/flashbots/streamscan/cmd/core"
	"github.com/flashbots/streamscan/cmd/service"
	"github.com/flashbots/streamscan/cmd/util"
	"github.com/flashbots/streamscan/vars"
	"github.com/spf13/cobra"
)

var Version = "dev" // is set during build process

var rootCmd = &cobra.Command{
	Use:   "streamscan",
	Short: "streamscan",
	Long:  `Builder grant stream dashboard and indexer`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("streamscan %s\n", Version)
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(core.CoreCmd)
	rootCmd.AddCommand(service.ServiceCmd)
	rootCmd.AddCommand(util.UtilCmd)
}

func Execute() {
	vars.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
