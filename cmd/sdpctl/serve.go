package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	redisclient "github.com/librescoot/simple-data-protocol/pkg/redis"
	"github.com/librescoot/simple-data-protocol/pkg/bridge"
	"github.com/librescoot/simple-data-protocol/pkg/sdp"
)

var (
	redisAddr string
	redisPass string
	redisDB   int
	nodeID    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the receiver and bridge delivered frames to Redis",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "Redis server address")
	serveCmd.Flags().StringVar(&redisPass, "redis-pass", "", "Redis password")
	serveCmd.Flags().IntVar(&redisDB, "redis-db", 0, "Redis database number")
	serveCmd.Flags().IntVar(&nodeID, "id", 1, "Node id, used only for diagnostics")
}

func runServe(cmd *cobra.Command, args []string) error {
	redisClient, err := redisclient.New(redisAddr, redisPass, redisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var b *bridge.Bridge
	node, ch, err := openNode(nodeID, func(p sdp.Payload) { b.Deliver(p) })
	if err != nil {
		return err
	}
	defer ch.Close()

	b = bridge.New(node, redisClient, nodeID)

	if err := node.EnableReceiver(); err != nil {
		return err
	}
	defer node.DisableReceiver()

	go b.Run()
	defer b.Stop()

	log.Infof("sdpctl serving on %s, bridging to Redis at %s", serialDevice, redisAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	return nil
}
