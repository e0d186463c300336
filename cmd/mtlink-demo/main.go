package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/behrlich/mtlink"
	"github.com/behrlich/mtlink/internal/logging"
	"github.com/behrlich/mtlink/transport/pipe"
)

func main() {
	var (
		size    = flag.Int("size", 256, "size in bytes of the demo block")
		chunk   = flag.Int("chunk", 64, "maximum chunk size the master requests")
		timeout = flag.Int("timeout-ms", 2000, "Call timeout in milliseconds")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	masterSide, slaveSide := pipe.New()

	cfg := mtlink.DefaultConfig()
	cfg.StepInterval = time.Millisecond

	masterLink := mtlink.New(cfg, masterSide, func(ev mtlink.Event) {
		logger.Debug("master event", "id", string(ev.ID), "block", ev.BlockName)
	})
	slaveLink := mtlink.New(cfg, slaveSide, func(ev mtlink.Event) {
		logger.Debug("slave event", "id", string(ev.ID), "block", ev.BlockName)
	})

	if err := masterLink.Start(ctx); err != nil {
		logger.Error("failed to start master side", "error", err)
		os.Exit(1)
	}
	defer masterLink.Close()

	if err := slaveLink.Start(ctx); err != nil {
		logger.Error("failed to start slave side", "error", err)
		os.Exit(1)
	}
	defer slaveLink.Close()

	const blockName = "demo"
	if rc := slaveLink.NewBlob(blockName, *size, mtlink.RoleSlave, "TRIG____", "PATT____"); rc != 0 {
		logger.Error("slave NewBlob failed", "rc", rc)
		os.Exit(1)
	}
	if rc := masterLink.NewBlob(blockName, *size, mtlink.RoleMaster, "TRIG____", "PATT____"); rc != 0 {
		logger.Error("master NewBlob failed", "rc", rc)
		os.Exit(1)
	}

	payload := make([]byte, *size)
	for i := range payload {
		payload[i] = byte('A' + i%26)
	}
	slaveLink.Memcpy(blockName, 0, payload)

	fmt.Printf("requesting %d bytes of block %q (max chunk %d)...\n", *size, blockName, *chunk)

	rc := masterLink.Call(blockName, *timeout, *chunk)
	if rc != 0 {
		logger.Error("call failed", "rc", rc)
		os.Exit(1)
	}

	deadline := time.Now().Add(time.Duration(*timeout) * time.Millisecond)
	for time.Now().Before(deadline) {
		n, err := masterLink.GetLength(blockName)
		if err == nil && n == *size {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, err := masterLink.Grab(blockName, time.Second)
	if err != nil {
		logger.Error("grab failed", "error", err)
		os.Exit(1)
	}
	match := string(got) == string(payload)
	masterLink.Return(blockName)

	fmt.Printf("transfer complete, content matches source: %v\n", match)

	snap := masterLink.Metrics()
	fmt.Printf("chunks received: %d, bytes: %d, retransmits: %d\n", snap.ChunksReceived, snap.ChunkBytes, snap.Retransmits)
	fmt.Printf("transfers started: %d completed: %d aborted: %d\n", snap.TransfersStarted, snap.TransfersCompleted, snap.TransfersAborted)
}
