// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package checkpoint

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/rpc"
)

// QuorumCollector gathers validator signatures over a checkpoint until the
// signed weight meets the finality threshold. Returns ErrQuorumNotReached
// when the current set cannot (yet) provide enough weight; the caller keeps
// the message window and tries again next tick.
type QuorumCollector interface {
	Collect(ctx context.Context, rec *models.CheckpointRecord, set *models.ValidatorSetSnapshot, threshold float64) ([]models.Signature, error)
}

// voteCollector asks the child chain which validators have already voted
// for the checkpoint's epoch. Signing itself happens inside each
// validator's node; the agent only observes votes.
type voteCollector struct {
	log *zap.SugaredLogger
	gw  rpc.Gateway
}

func NewVoteCollector(log *zap.SugaredLogger, gw rpc.Gateway) QuorumCollector {
	return &voteCollector{log: log.Named("quorum"), gw: gw}
}

func (c *voteCollector) Collect(ctx context.Context, rec *models.CheckpointRecord, set *models.ValidatorSetSnapshot, threshold float64) ([]models.Signature, error) {
	total := set.TotalPower()
	if total == 0 {
		return nil, fmt.Errorf("%w: validator set has zero power", agenterr.ErrQuorumNotReached)
	}
	need := requiredWeight(total, threshold)

	var sigs []models.Signature
	var signed uint64
	for _, v := range set.Validators {
		sig, err := c.gw.HasVoted(ctx, v.Address, rec.Epochs.To)
		if err != nil {
			return nil, err
		}
		if sig == nil {
			continue
		}
		sig.Weight = v.VotingPower
		sigs = append(sigs, *sig)
		signed += v.VotingPower
		if signed >= need {
			return sigs, nil
		}
	}
	c.log.Debugw("quorum not reached",
		"subnet", rec.SubnetID, "nonce", rec.Nonce,
		"signed", signed, "need", need, "total", total)
	return nil, fmt.Errorf("%w: signed weight %d of required %d", agenterr.ErrQuorumNotReached, signed, need)
}

// requiredWeight is the smallest signed weight w with w/total >= threshold,
// computed in integers to stay deterministic.
func requiredWeight(total uint64, threshold float64) uint64 {
	w := uint64(float64(total) * threshold)
	if float64(w) < float64(total)*threshold {
		w++
	}
	if w == 0 {
		w = 1
	}
	return w
}
