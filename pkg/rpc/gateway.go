// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

// Package rpc maintains one long-lived JSON-RPC client per subnet and wraps
// every call in the agent's retry policy.
package rpc

import (
	"context"

	"github.com/protofire/ipc-agent/pkg/models"
)

// Gateway is the read/submit surface the agent needs from a subnet node's
// gateway actor.
type Gateway interface {
	// ChainHead returns the node's current head tipset.
	ChainHead(ctx context.Context) (models.Tipset, error)
	// QueryValidatorSet reads the active validator set at tipSet.
	QueryValidatorSet(ctx context.Context, tipSet models.Tipset) (*models.ValidatorSetSnapshot, error)
	// SubmitCheckpoint submits a bottom-up checkpoint for record.SubnetID.
	SubmitCheckpoint(ctx context.Context, record *models.CheckpointRecord) error
	// LastConfirmedNonce returns the last checkpoint nonce the gateway has
	// confirmed for child.
	LastConfirmedNonce(ctx context.Context, child models.SubnetID) (uint64, error)
	// CheckpointTemplate returns the cross-messages accumulated in the
	// subnet's outbox for its parent since epoch.
	CheckpointTemplate(ctx context.Context, sinceEpoch int64) ([]models.CrossMsg, error)
	// TopDownMessages returns the finalized cross-messages destined for
	// child with nonce >= fromNonce.
	TopDownMessages(ctx context.Context, child models.SubnetID, fromNonce uint64) ([]models.CrossMsg, error)
	// ApplyTopDown delivers a top-down bundle (validator changes plus
	// cross-messages) to the child gateway.
	ApplyTopDown(ctx context.Context, record *models.CheckpointRecord, changes models.ValidatorDiff) error
	// HasVoted reports whether validator has signed the bottom-up
	// checkpoint at epoch, returning its signature when it has.
	HasVoted(ctx context.Context, validator string, epoch int64) (*models.Signature, error)
}
