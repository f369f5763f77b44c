// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

// Command organizerd runs a standalone Hermes Buffer Organizer node: the
// organizer core wired against the memory-only localstore collaborators
// rather than a distributed metadata manager, placement engine, and
// transport. It exists to run and exercise the organizer's task queue,
// reorganizer, flush and swap-in paths without a full cluster, and as the
// composition root a real deployment's daemon would otherwise provide.
package main

import (
	"encoding/json"
	"flag"
	"os"

	log "github.com/golang/glog"

	"github.com/akougkas/hermes/internal/core"
	"github.com/akougkas/hermes/internal/localstore"
	"github.com/akougkas/hermes/internal/netrpc"
	"github.com/akougkas/hermes/internal/organizer"
	pkgrpc "github.com/akougkas/hermes/pkg/rpc"
)

/*

Configuring organizerd follows the same three steps as the rest of this
project's daemons:

  (1) Default config parameters come from organizer.DefaultProdConfig.

  (2) An optional JSON configuration file, named via -organizerCfg,
      overrides the defaults.

  (3) Optional individual flags override whatever step (1) and (2) set.

*/

var (
	organizerCfg = organizer.DefaultProdConfig
	cfgFile      = flag.String("organizerCfg", "", "configuration file for the organizer")

	addr   = flag.String("addr", ":4777", "address to serve the BO RPC service on")
	nodeID = flag.Uint("nodeID", 1, "this node's id")

	numWorkers      = flag.Int("numWorkers", 0, "worker pool size, 0 keeps the config default")
	moveBytesPerSec = flag.Float64("moveBytesPerSec", -1, "move bandwidth cap in bytes/sec, negative keeps the config default")

	numTargets       = flag.Int("numTargets", 2, "number of local demo targets to register")
	targetCapacityGB = flag.Uint64("targetCapacityGB", 16, "capacity of each demo target, in GB")
	targetBandwidth  = flag.Float64("targetBandwidthMbps", 500, "bandwidth rating of each demo target, in MB/s")
	slotBytes        = flag.Uint64("slotBytes", 64<<20, "fixed buffer slot size on each demo target")

	peersFile = flag.String("peers", "", "JSON file mapping peer node ids to \"host:port\", enabling multi-node RPC instead of the single-node loopback client")
)

func init() {
	flag.Parse()

	if *cfgFile != "" {
		f, err := os.Open(*cfgFile)
		if err != nil {
			log.Fatalf("couldn't open the provided config file: %s", err)
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&organizerCfg); err != nil {
			log.Fatalf("failed to decode the config file: %s", err)
		}
	}

	if *numWorkers > 0 {
		organizerCfg.NumWorkers = *numWorkers
	}
	if *moveBytesPerSec >= 0 {
		organizerCfg.MoveBytesPerSec = float32(*moveBytesPerSec)
	}
}

func main() {
	if err := organizerCfg.Validate(); err != nil {
		log.Fatalf("invalid organizer config: %s", err)
	}

	node := uint32(*nodeID)

	targets := localstore.NewTargetStore(node, *slotBytes)
	for i := 0; i < *numTargets; i++ {
		id := core.TargetID(i + 1)
		targets.Register(id, float32(*targetBandwidth), *targetCapacityGB<<30)
	}

	mdm := localstore.NewMetadataManager(node)
	placement := localstore.NewPlacementEngine(targets)
	locks := organizer.NewLocalLockManager()
	rpc := newRPCClient(node, &organizerCfg)

	o := organizer.New(&organizerCfg, targets.Store(), mdm, placement, targets, locks, rpc)
	if err := organizer.RegisterRPC(o); err != nil {
		log.Fatalf("couldn't register the BO RPC service: %s", err)
	}

	pkgrpc.StartStandaloneRPCServer(*addr)
	log.Infof("organizerd listening on %s as node %d with %d targets", *addr, node, *numTargets)

	select {}
}

// newRPCClient returns a netrpc.Client dialing the peers named in
// -peers, or a localstore.LoopbackRPCClient for a single-node deployment
// that never expects to route to another organizer.
func newRPCClient(node uint32, cfg *organizer.Config) organizer.RPCClient {
	if *peersFile == "" {
		return localstore.NewLoopbackRPCClient(node)
	}

	f, err := os.Open(*peersFile)
	if err != nil {
		log.Fatalf("couldn't open peers file %s: %s", *peersFile, err)
	}
	defer f.Close()

	var addresses map[uint32]string
	if err := json.NewDecoder(f).Decode(&addresses); err != nil {
		log.Fatalf("failed to decode peers file %s: %s", *peersFile, err)
	}

	dir := netrpc.NewDirectory(addresses)
	return netrpc.New(node, dir, cfg.RPCDialTimeout, cfg.RPCDeadline, cfg.RPCConnCacheSize)
}
