// Command ringd serves ring placement over gRPC.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kvring/internal/config"
	"kvring/internal/logging"
	"kvring/internal/node"
	"kvring/internal/ring"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file")
		nodeID     = flag.String("node-id", "", "identifier of this ringd instance")
		listen     = flag.String("listen", "", "gRPC listen address")
		vnodes     = flag.Int("vnodes", 0, "base virtual nodes per unit of weight")
		hash       = flag.String("hash", "", "placement hash (xxhash, fnv1a)")
		nodes      = flag.String("nodes", "", "initial members, e.g. a=3,b,c=2")
		logLevel   = flag.String("log-level", "", "debug, info, warn or error")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("read config failed: %v", err)
		}
		cfg = loaded
	}

	// Flags given on the command line override the file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "node-id":
			cfg.NodeID = *nodeID
		case "listen":
			cfg.ListenAddr = *listen
		case "vnodes":
			cfg.VNodes = *vnodes
		case "hash":
			cfg.Hash = *hash
		case "log-level":
			cfg.LogLevel = *logLevel
		case "nodes":
			specs, err := config.ParseNodes(*nodes)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Nodes = specs
		}
	})
	if flagErr != nil {
		log.Fatalf("invalid --nodes: %v", flagErr)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.New(cfg.NodeID, logging.ParseLevel(cfg.LogLevel))

	hashFn, err := cfg.HashFunc()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	r := ring.NewRing(cfg.VNodes, ring.WithHash(hashFn), ring.WithLogger(logger))
	if err := r.SetNodes(cfg.Members()); err != nil {
		log.Fatalf("build ring failed: %v", err)
	}

	n := node.NewNode(cfg.NodeID, cfg.ListenAddr, r, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("Received %v, shutting down", sig)
		n.Stop()
	}()

	if err := n.Start(); err != nil {
		log.Fatalf("node error: %v", err)
	}
}
