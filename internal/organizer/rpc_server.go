// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"strings"

	"github.com/akougkas/hermes/internal/core"
	pkgrpc "github.com/akougkas/hermes/pkg/rpc"
)

// boServicePrefix is the net/rpc service name the organizer registers its
// handlers under; registered methods are addressed as "BO.<Method>",
// carrying forward the "BO::" namespacing the rest of this package's RPC
// surface uses when talking about these calls informally.
const boServicePrefix = "BO"

// IsBoFunction reports whether a dispatched RPC method name belongs to the
// organizer's service, so a process hosting multiple registered services
// (metadata manager, placement engine, organizer) can route without
// depending on this package's internals.
func IsBoFunction(method string) bool {
	return strings.HasPrefix(method, boServicePrefix+".")
}

// WithBOPrefix qualifies a bare method name (e.g. "OrganizeBlob") the way
// this package's handlers are actually registered (e.g. "BO.OrganizeBlob"),
// for use with RPCClient.Call.
func WithBOPrefix(method string) string {
	return boServicePrefix + "." + method
}

// boService adapts an *Organizer to net/rpc's calling convention
// (exported methods of the form func(args T, reply *U) error) and is what
// gets registered with pkg/rpc.RegisterName.
type boService struct {
	o *Organizer
}

// RegisterRPC registers o's RPC surface with the process's default RPC
// server under the "BO" service name.
func RegisterRPC(o *Organizer) error {
	return pkgrpc.RegisterName(boServicePrefix, &boService{o: o})
}

// OrganizeBlob handles a forwarded BO.OrganizeBlob call from a peer node
// that hashed a blob's internal name to this node.
func (s *boService) OrganizeBlob(args organizeArgs, reply *struct{}) error {
	return s.o.OrganizeBlob(context.Background(), args.Bucket, args.BlobName, args.Epsilon, args.Importance)
}

// GetBufferInfo returns HeaderInfo for a buffer this node owns.
func (s *boService) GetBufferInfo(id core.BufferID, reply *core.BufferInfo) error {
	info, ok := s.o.bufStore.HeaderInfo(id)
	if !ok {
		return core.ErrBufferNotFound.Error()
	}
	*reply = info
	return nil
}

// ReadBuffer returns up to args.Length bytes of a locally-owned buffer,
// used by a peer organizer performing a cross-node BoMove or FlushBlob.
func (s *boService) ReadBuffer(args readBufferArgs, reply *readBufferReply) error {
	buf := make([]byte, args.Length)
	n, err := s.o.bufStore.ReadBufferByID(context.Background(), args.ID, buf, 0)
	if err != nil {
		return err
	}
	reply.Data = buf[:n]
	return nil
}

// FreeBuffer releases a locally-owned buffer on behalf of a peer that just
// finished moving its contents elsewhere.
func (s *boService) FreeBuffer(id core.BufferID, reply *struct{}) error {
	return s.o.bufStore.Free(id)
}

// EnqueueBoMove submits a move task on this node's worker pool on behalf
// of a peer (or the filesystem-adapter layer) that determined the move
// should run here.
func (s *boService) EnqueueBoMove(args core.MoveArgs, reply *struct{}) error {
	return s.o.LocalEnqueueBoMove(args, core.BoPriorityLow)
}

// EnqueueBoTask submits a fully-formed task (move, copy, or delete) on
// this node's worker pool.
func (s *boService) EnqueueBoTask(args core.BoTask, reply *struct{}) error {
	return s.o.LocalEnqueueBoTask(args)
}

// enqueueFlushingTaskArgs is the wire shape of a BO.EnqueueFlushingTask
// call.
type enqueueFlushingTaskArgs struct {
	Blob     core.BlobID
	Filename string
	Offset   int64
}

// EnqueueFlushingTask submits an asynchronous flush of args.Blob to
// args.Filename at args.Offset on this node's worker pool, on behalf of a
// peer node (or the filesystem-adapter layer) driving a flush whose work
// belongs here. The vbucket whose outstanding-flush counter this bumps is
// the one args.Filename itself names, resolved the same way a local
// LocalEnqueueFlushingTask caller would.
func (s *boService) EnqueueFlushingTask(args enqueueFlushingTaskArgs, reply *bool) error {
	vbucket := s.o.mdm.VBucketID(args.Filename)
	err := s.o.LocalEnqueueFlushingTask(newFlushWaiter(), args.Blob, vbucket, args.Filename, args.Offset)
	*reply = err == nil
	return err
}

// IncrementFlushCount bumps the outstanding-flush counter for a vbucket on
// behalf of a peer node driving a multi-node flush, returning its new
// value.
func (s *boService) IncrementFlushCount(vb core.VBucketID, reply *int) error {
	*reply = s.o.mdm.AdjustFlushCount(vb, 1)
	return nil
}

// DecrementFlushCount mirrors IncrementFlushCount for the completion side.
func (s *boService) DecrementFlushCount(vb core.VBucketID, reply *int) error {
	*reply = s.o.mdm.AdjustFlushCount(vb, -1)
	return nil
}
