package core

import (
	"context"
	"fmt"

	"github.com/flashbots/streamscan/services/website"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	resolveFlags           PipelineFlags
	resolveShowWithdrawals bool
	resolveViewer          string
)

func init() {
	AddPipelineFlags(resolveBuildersCmd, &resolveFlags)
	resolveBuildersCmd.Flags().BoolVar(&resolveShowWithdrawals, "withdrawals", false, "also print the contribution history")
	resolveBuildersCmd.Flags().StringVar(&resolveViewer, "viewer", "", "report whether this address is an eligible builder")
}

var resolveBuildersCmd = &cobra.Command{
	Use:   "resolve-builders",
	Short: "Resolve the eligible builders once and print them",
	Run: func(cmd *cobra.Command, args []string) {
		pipeline, _, cleanup := NewPipeline(log, &resolveFlags)
		defer cleanup()

		if !pipeline.Ready() {
			log.WithError(pipeline.ConfigError()).Fatal("pipeline not ready")
		}

		snapshot, err := pipeline.Tick(context.Background())
		if err != nil {
			log.WithError(err).Fatal("resolution failed")
		}

		log.WithFields(logrus.Fields{
			"contract":   snapshot.Contract.Address,
			"syncedTo":   snapshot.Status.SyncedBlock,
			"candidates": snapshot.Status.NumCandidates,
			"eligible":   snapshot.Status.NumEligible,
			"excluded":   snapshot.Status.NumExcluded,
			"unknown":    snapshot.Status.NumUnknown,
		}).Info("resolution done")

		fmt.Println(website.BuilderTable(snapshot))
		if resolveShowWithdrawals {
			fmt.Println(website.WithdrawalTable(snapshot.Contributions))
		}
		if resolveViewer != "" {
			fmt.Printf("%s is eligible builder: %t\n", resolveViewer, snapshot.IsEligibleBuilder(resolveViewer))
		}
	},
}
