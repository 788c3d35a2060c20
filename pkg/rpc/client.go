// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package rpc

import (
	"context"
	"strings"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/models"
)

// Gateway actor RPC methods exposed by a subnet node.
const (
	methodChainHead          = "Filecoin.ChainHead"
	methodGetValidatorSet    = "Filecoin.IPCGetValidatorSet"
	methodSubmitCheckpoint   = "Filecoin.IPCSubmitCheckpoint"
	methodSubmitTopDown      = "Filecoin.IPCSubmitTopDownCheckpoint"
	methodPrevCheckpoint     = "Filecoin.IPCGetPrevCheckpointForChild"
	methodCheckpointTemplate = "Filecoin.IPCGetCheckpointTemplate"
	methodTopDownMsgs        = "Filecoin.IPCGetTopDownMsgs"
	methodHasVotedBottomUp   = "Filecoin.IPCHasVotedBottomUpCheckpoint"
)

// client is the Gateway implementation for one subnet endpoint. It is
// long-lived: a call that exhausts its retries leaves the client usable for
// later calls.
type client struct {
	log    *zap.SugaredLogger
	subnet models.SubnetID
	rpc    *gethrpc.Client
	retry  retryPolicy
}

// Dial connects a gateway client to the subnet's JSON-RPC endpoint. A
// non-empty authToken is sent as a bearer token on every request.
func Dial(ctx context.Context, log *zap.SugaredLogger, conf models.Subnet) (Gateway, error) {
	opts := []gethrpc.ClientOption{}
	if conf.AuthToken != "" {
		opts = append(opts, gethrpc.WithHeader("Authorization", "Bearer "+conf.AuthToken))
	}
	c, err := gethrpc.DialOptions(ctx, conf.RPCEndpoint, opts...)
	if err != nil {
		return nil, agenterr.Unreachablef("dial %s at %s: %v", conf.ID, conf.RPCEndpoint, err)
	}
	return &client{
		log:    log.Named("rpc").With("subnet", conf.ID),
		subnet: conf.ID,
		rpc:    c,
		retry:  defaultRetryPolicy(),
	}, nil
}

func (c *client) ChainHead(ctx context.Context) (models.Tipset, error) {
	var head models.Tipset
	err := c.call(ctx, &head, methodChainHead)
	return head, err
}

func (c *client) QueryValidatorSet(ctx context.Context, tipSet models.Tipset) (*models.ValidatorSetSnapshot, error) {
	var snap models.ValidatorSetSnapshot
	if err := c.call(ctx, &snap, methodGetValidatorSet, tipSet.Key); err != nil {
		return nil, err
	}
	snap.SubnetID = c.subnet
	snap.TipSet = tipSet.Key
	if snap.Epoch == 0 {
		snap.Epoch = tipSet.Epoch
	}
	return &snap, nil
}

func (c *client) SubmitCheckpoint(ctx context.Context, record *models.CheckpointRecord) error {
	var ok bool
	return c.call(ctx, &ok, methodSubmitCheckpoint, record)
}

func (c *client) LastConfirmedNonce(ctx context.Context, child models.SubnetID) (uint64, error) {
	var nonce uint64
	err := c.call(ctx, &nonce, methodPrevCheckpoint, child)
	return nonce, err
}

func (c *client) CheckpointTemplate(ctx context.Context, sinceEpoch int64) ([]models.CrossMsg, error) {
	var msgs []models.CrossMsg
	err := c.call(ctx, &msgs, methodCheckpointTemplate, sinceEpoch)
	return msgs, err
}

func (c *client) TopDownMessages(ctx context.Context, child models.SubnetID, fromNonce uint64) ([]models.CrossMsg, error) {
	var msgs []models.CrossMsg
	err := c.call(ctx, &msgs, methodTopDownMsgs, child, fromNonce)
	return msgs, err
}

func (c *client) ApplyTopDown(ctx context.Context, record *models.CheckpointRecord, changes models.ValidatorDiff) error {
	var ok bool
	return c.call(ctx, &ok, methodSubmitTopDown, record, changes)
}

func (c *client) HasVoted(ctx context.Context, validator string, epoch int64) (*models.Signature, error) {
	var sig *models.Signature
	err := c.call(ctx, &sig, methodHasVotedBottomUp, validator, epoch)
	return sig, err
}

func (c *client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	return c.retry.do(ctx, c.log, method, func(callCtx context.Context) error {
		err := c.rpc.CallContext(callCtx, result, method, args...)
		return classify(err)
	})
}

// classify maps transport and node errors onto the agent taxonomy before
// the retry policy sees them.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var httpErr gethrpc.HTTPError
	if asHTTPError(err, &httpErr) {
		switch httpErr.StatusCode {
		case 401, 403:
			return agenterr.Authf("endpoint rejected credentials (%s)", httpErr.Status)
		}
		return err
	}
	// Lotus reports sequencing failures as plain jsonrpc error strings.
	if strings.Contains(strings.ToLower(err.Error()), "nonce") {
		return agenterr.NonceConflictf("%v", err)
	}
	return err
}
