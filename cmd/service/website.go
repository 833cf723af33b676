package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashbots/streamscan/cmd/core"
	"github.com/flashbots/streamscan/services/resolver"
	"github.com/flashbots/streamscan/services/snapshot"
	"github.com/flashbots/streamscan/services/website"
	"github.com/flashbots/streamscan/vars"
	"github.com/spf13/cobra"
)

var (
	websiteListenAddr     string
	websiteDev            = os.Getenv("DEV") == "1"
	websiteInterval       time.Duration
	websiteEnablePprof    bool
	websiteRedisURI       string
	websiteRedisKeyPrefix string
	websitePipelineFlags  core.PipelineFlags
)

func init() {
	core.AddPipelineFlags(websiteCmd, &websitePipelineFlags)
	websiteCmd.Flags().StringVar(&websiteListenAddr, "listen-addr", vars.DefaultListenAddr, "listen address for webserver")
	websiteCmd.Flags().BoolVar(&websiteDev, "dev", websiteDev, "development mode")
	websiteCmd.Flags().DurationVar(&websiteInterval, "interval", website.DefaultUpdateInterval, "refresh interval")
	websiteCmd.Flags().BoolVar(&websiteEnablePprof, "pprof", false, "enable pprof API")
	websiteCmd.Flags().StringVar(&websiteRedisURI, "redis-uri", vars.DefaultRedisURI, "publish snapshots to redis")
	websiteCmd.Flags().StringVar(&websiteRedisKeyPrefix, "redis-prefix", snapshot.DefaultKeyPrefix, "redis key prefix")
}

var websiteCmd = &cobra.Command{
	Use:   "website",
	Short: "Start the website server and the refresh loop",
	Run: func(cmd *cobra.Command, args []string) {
		log.Infof("streamscan %s website starting...", vars.Version)

		var publishers []resolver.Publisher
		if websiteRedisURI != "" {
			publisher, err := snapshot.NewRedisPublisher(log, websiteRedisURI, websiteRedisKeyPrefix)
			if err != nil {
				log.WithError(err).Fatal("couldn't connect to redis")
			}
			defer publisher.Close()
			log.WithField("instance", publisher.InstanceID()).Info("publishing snapshots to redis")
			publishers = append(publishers, publisher)
		}

		pipeline, db, cleanup := core.NewPipeline(log, &websitePipelineFlags, publishers...)
		defer cleanup()
		if !pipeline.Ready() {
			log.WithError(pipeline.ConfigError()).Warn("pipeline not ready, serving without data")
		}

		opts := &website.WebserverOpts{
			ListenAddress:  websiteListenAddr,
			Log:            log,
			Pipeline:       pipeline,
			UpdateInterval: websiteInterval,
			DB:             db,
			EnablePprof:    websiteEnablePprof,
			Dev:            websiteDev,
		}

		srv, err := website.NewWebserver(opts)
		if err != nil {
			log.WithError(err).Fatal("failed to create service")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			log.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Error("shutdown failed")
			}
		}()

		log.Infof("Webserver starting on %s ...", websiteListenAddr)
		if err := srv.StartServer(); err != nil {
			log.WithError(err).Fatal("webserver failed")
		}
		log.Info("bye")
	},
}
