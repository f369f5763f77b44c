// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoopbackRPCClientReportsNodeID(t *testing.T) {
	c := NewLoopbackRPCClient(7)
	assert.EqualValues(t, 7, c.NodeID())
}

func TestLoopbackRPCClientCallAlwaysFails(t *testing.T) {
	c := NewLoopbackRPCClient(7)
	err := c.Call(context.Background(), 9, "BO.OrganizeBlob", nil, nil)
	assert.Error(t, err)
}
