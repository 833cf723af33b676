package core

import (
	"context"

	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/database"
	"github.com/flashbots/streamscan/eventlog"
	"github.com/flashbots/streamscan/vars"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	backfillFlags       ChainFlags
	backfillPostgresDSN string
)

func init() {
	AddChainFlags(backfillEventsCmd, &backfillFlags)
	backfillEventsCmd.Flags().StringVar(&backfillPostgresDSN, "postgres-dsn", vars.DefaultPostgresDSN, "postgres DSN")
}

var backfillEventsCmd = &cobra.Command{
	Use:   "backfill-events",
	Short: "Sync AddBuilder and Withdraw events into postgres",
	Run: func(cmd *cobra.Command, args []string) {
		if backfillPostgresDSN == "" {
			log.Fatal("--postgres-dsn is required")
		}

		dir, err := backfillFlags.LoadDirectory()
		if err != nil {
			log.WithError(err).Fatal("couldn't load contract directory")
		}
		contract, err := dir.Stream(backfillFlags.ContractName)
		if err != nil {
			log.WithError(err).Fatal("couldn't find contract")
		}

		backend, node := backfillFlags.Backend(log)
		if backend == nil {
			log.Fatal("no eth node")
		}
		defer node.Close()

		db := database.MustConnectPostgres(log, backfillPostgresDSN)
		defer db.Close()

		fetcher := chain.NewEventFetcher(&chain.EventFetcherOpts{
			Log:           log,
			Backend:       backend,
			BlockTimes:    backfillFlags.BlockTimes(log),
			MaxBlockRange: backfillFlags.MaxBlockRange,
		})
		syncer := eventlog.NewSyncer(&eventlog.SyncerOpts{
			Log:           log,
			Fetcher:       fetcher,
			Store:         db,
			Contract:      contract,
			Confirmations: backfillFlags.Confirmations,
			ReorgDepth:    backfillFlags.ReorgDepth,
		})

		log.WithFields(logrus.Fields{
			"contract":    contract.Address.Hex(),
			"deployBlock": contract.DeployBlock,
		}).Info("backfilling events")

		res, err := syncer.Sync(context.Background())
		if err != nil {
			log.WithError(err).Fatal("event sync failed")
		}
		log.WithFields(logrus.Fields{
			"head":          res.Head,
			"newAddBuilder": res.NewAddBuilder,
			"newWithdraw":   res.NewWithdraw,
		}).Info("backfill done")
	},
}
