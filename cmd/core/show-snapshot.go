package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flashbots/streamscan/services/snapshot"
	"github.com/flashbots/streamscan/services/website"
	"github.com/flashbots/streamscan/vars"
	"github.com/spf13/cobra"
)

var (
	showSnapshotRedisURI  string
	showSnapshotKeyPrefix string
	showSnapshotJSON      bool
	showSnapshotFollow    bool
)

func init() {
	showSnapshotCmd.Flags().StringVar(&showSnapshotRedisURI, "redis-uri", vars.DefaultRedisURI, "redis URI")
	showSnapshotCmd.Flags().StringVar(&showSnapshotKeyPrefix, "redis-prefix", snapshot.DefaultKeyPrefix, "redis key prefix")
	showSnapshotCmd.Flags().BoolVar(&showSnapshotJSON, "json", false, "print the raw snapshot JSON")
	showSnapshotCmd.Flags().BoolVar(&showSnapshotFollow, "follow", false, "keep printing snapshots as they are published")
}

var showSnapshotCmd = &cobra.Command{
	Use:   "show-snapshot",
	Short: "Print the latest snapshot published to redis",
	Run: func(cmd *cobra.Command, args []string) {
		publisher, err := snapshot.NewRedisPublisher(log, showSnapshotRedisURI, showSnapshotKeyPrefix)
		if err != nil {
			log.WithError(err).Fatal("couldn't connect to redis")
		}
		defer publisher.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		envelope, err := publisher.Latest(ctx)
		if err == nil {
			printEnvelope(envelope)
		} else if !showSnapshotFollow || !errors.Is(err, snapshot.ErrNoSnapshot) {
			log.WithError(err).Fatal("couldn't get snapshot")
		}
		if !showSnapshotFollow {
			return
		}

		envelopes, err := publisher.Subscribe(ctx)
		if err != nil {
			log.WithError(err).Fatal("couldn't subscribe to snapshots")
		}
		log.Info("waiting for snapshots...")
		for envelope := range envelopes {
			printEnvelope(envelope)
		}
	},
}

func printEnvelope(envelope *snapshot.Envelope) {
	if showSnapshotJSON {
		out, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			log.WithError(err).Fatal("couldn't encode snapshot")
		}
		fmt.Println(string(out))
		return
	}

	status := envelope.Snapshot.Status
	fmt.Printf("instance %s, published %s\n", envelope.InstanceID, envelope.PublishedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("ready=%t state=%s seq=%d synced=%d eligible=%d/%d unknown=%d\n\n",
		status.Ready, status.State, status.Seq, status.SyncedBlock, status.NumEligible, status.NumCandidates, status.NumUnknown)
	fmt.Println(website.BuilderTable(envelope.Snapshot))
	fmt.Println(website.WithdrawalTable(envelope.Snapshot.Contributions))
}
