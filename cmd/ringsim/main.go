// Command ringsim walks a small replicated cluster through a server failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"kvring/internal/cluster"
	"kvring/internal/logging"
	"kvring/internal/ring"
)

func main() {
	var (
		vnodes   = flag.Int("vnodes", 100, "base virtual nodes per unit of weight")
		rf       = flag.Int("rf", 2, "replication factor")
		numKeys  = flag.Int("keys", 5, "number of keys to write")
		logLevel = flag.String("log-level", "info", "debug, info, warn or error")
	)
	flag.Parse()

	logger := logging.New("ringsim", logging.ParseLevel(*logLevel))
	c := cluster.New(ring.NewRing(*vnodes), *rf, cluster.WithLogger(logger))

	for _, s := range []struct {
		id     string
		weight int
	}{
		{"Node-Standard", 1},
		{"Node-Prime", 4},
	} {
		if err := c.Deploy(s.id, s.weight); err != nil {
			log.Fatalf("deploy %s failed: %v", s.id, err)
		}
	}

	ctx := context.Background()
	keys := make([]string, *numKeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("request_id_%d", i)
	}

	fmt.Println("\n--- Phase 1: Weighted Distribution with Replication ---")
	for _, k := range keys {
		written, err := c.Put(ctx, k, []byte("Payload_Data"))
		if err != nil {
			fmt.Printf("Write %q failed: %v\n", k, err)
			continue
		}
		fmt.Printf("Routed %q to replicas %v\n", k, written)
	}
	fmt.Printf("Keys per server: %v\n", c.KeyCounts())

	fmt.Println("\n--- [CRITICAL FAILURE] Node-Prime is offline ---")
	if err := c.Fail("Node-Prime"); err != nil {
		log.Fatalf("fail Node-Prime: %v", err)
	}

	fmt.Println("\n--- Phase 2: Failure Recovery ---")
	for _, k := range keys {
		res, err := c.Get(ctx, k)
		if err != nil {
			fmt.Printf("(Total Failure) Query %q: %v\n", k, err)
			continue
		}
		fmt.Printf("(Success from %s) Query %q: %s\n", res.Replica, k, res.Value)
	}
}
