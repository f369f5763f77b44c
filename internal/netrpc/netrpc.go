// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

// Package netrpc is a multi-node organizer.RPCClient, built on pkg/rpc's
// bulk-codec HTTP transport and connection cache. A single-node deployment
// has no use for it (localstore.LoopbackRPCClient covers that); this is the
// collaborator a deployment with more than one organizer wires in instead.
package netrpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/golang/glog"

	pkgrpc "github.com/akougkas/hermes/pkg/rpc"
)

// Directory maps node IDs to the host:port their organizer's RPC server
// listens on. It starts from the map given to NewDirectory; Set adds or
// updates entries afterwards, and lookups and updates are safe to use
// concurrently.
type Directory struct {
	mu        sync.RWMutex
	addresses map[uint32]string
}

// NewDirectory builds a Directory from a node-id-to-address map.
func NewDirectory(addresses map[uint32]string) *Directory {
	cp := make(map[uint32]string, len(addresses))
	for k, v := range addresses {
		cp[k] = v
	}
	return &Directory{addresses: cp}
}

// Lookup returns the address registered for node, if any.
func (d *Directory) Lookup(node uint32) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	addr, ok := d.addresses[node]
	return addr, ok
}

// Set registers or updates node's address, for a directory that learns
// about peers after construction (e.g. from a membership-change RPC).
func (d *Directory) Set(node uint32, addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.addresses == nil {
		d.addresses = make(map[uint32]string)
	}
	d.addresses[node] = addr
}

// Client is an organizer.RPCClient backed by a pkg/rpc.ConnectionCache: one
// cached HTTP connection per peer node, reused across calls.
type Client struct {
	nodeID uint32
	dir    *Directory
	conns  *pkgrpc.ConnectionCache
}

// New returns a Client for nodeID (this process's own node), resolving
// peers through dir and dialing new connections with the given timeouts.
// maxConns bounds how many idle peer connections are kept open; 0 means
// unbounded.
func New(nodeID uint32, dir *Directory, dialTimeout, rpcTimeout time.Duration, maxConns int) *Client {
	return &Client{
		nodeID: nodeID,
		dir:    dir,
		conns:  pkgrpc.NewConnectionCache(dialTimeout, rpcTimeout, maxConns),
	}
}

// NodeID implements organizer.RPCClient.
func (c *Client) NodeID() uint32 {
	return c.nodeID
}

// Call implements organizer.RPCClient, routing to the peer registered for
// node in c's Directory.
func (c *Client) Call(ctx context.Context, node uint32, method string, args, reply interface{}) error {
	addr, ok := c.dir.Lookup(node)
	if !ok {
		return fmt.Errorf("netrpc: no known address for node %d", node)
	}
	if err := c.conns.Send(ctx, addr, method, args, reply); err != nil {
		log.Warningf("netrpc: calling %s on node %d (%s): %v", method, node, addr, err)
		return fmt.Errorf("netrpc: %s to node %d: %w", method, node, err)
	}
	return nil
}

// Close releases every cached peer connection. Call it once during daemon
// shutdown, after the organizer itself has stopped issuing calls.
func (c *Client) Close() error {
	return c.conns.CloseAll()
}
