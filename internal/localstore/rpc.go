// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package localstore

import (
	"context"
	"fmt"

	"github.com/akougkas/hermes/internal/core"
)

// LoopbackRPCClient is an organizer.RPCClient for standalone deployments: a
// single node owns every buffer, blob and target, so no BlobID or BufferID
// an organizer constructs should ever resolve to a different node. Call is
// only reachable if that invariant is broken, and exists as a safety net
// rather than something meant to be exercised.
type LoopbackRPCClient struct {
	nodeID uint32
}

// NewLoopbackRPCClient returns an RPCClient that always reports nodeID as
// its own node, and refuses to place any outgoing call.
func NewLoopbackRPCClient(nodeID uint32) *LoopbackRPCClient {
	return &LoopbackRPCClient{nodeID: nodeID}
}

// NodeID implements organizer.RPCClient.
func (c *LoopbackRPCClient) NodeID() uint32 {
	return c.nodeID
}

// Call implements organizer.RPCClient. It always fails: a standalone
// deployment has nowhere else to route to.
func (c *LoopbackRPCClient) Call(ctx context.Context, node uint32, method string, args, reply interface{}) error {
	return fmt.Errorf("localstore: %w: no peer node %d in a standalone deployment", core.ErrRPC.Error(), node)
}
