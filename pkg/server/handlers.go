// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/checkpoint"
	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/lifecycle"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/registry"
)

// Deps are the collaborators the request handlers dispatch into.
type Deps struct {
	Registry  *registry.Registry
	Lifecycle *lifecycle.Manager
	Scheduler *checkpoint.Scheduler
	// Reload re-reads the config file and propagates the new snapshot to
	// the registry and scheduler.
	Reload func(ctx context.Context) error
}

func (s *Server) register(deps Deps) {
	s.handlers[MethodListChildSubnets] = deps.listChildSubnets
	s.handlers[MethodCreateSubnet] = deps.createSubnet
	s.handlers[MethodJoinSubnet] = deps.joinSubnet
	s.handlers[MethodLeaveSubnet] = deps.leaveSubnet
	s.handlers[MethodKillSubnet] = deps.killSubnet
	s.handlers[MethodQueryValidatorSet] = deps.queryValidatorSet
	s.handlers[MethodListCheckpoints] = deps.listCheckpoints
	s.handlers[MethodReloadConfig] = deps.reloadConfig
}

type ListChildSubnetsParams struct {
	GatewayAddress string `json:"gateway_address"`
	SubnetID       string `json:"subnet_id"`
}

func (d Deps) listChildSubnets(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p ListChildSubnetsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	parent, err := models.ParseSubnetID(p.SubnetID)
	if err != nil {
		return nil, agenterr.Configf("subnet_id: %v", err)
	}

	out := make(map[string]lifecycle.Info)
	for _, info := range d.Lifecycle.ListChildren(parent) {
		out[info.ID.String()] = info
	}
	// children known only from the config have no lifecycle ledger here
	for _, id := range d.Registry.Snapshot().Children(parent) {
		if _, ok := out[id.String()]; ok {
			continue
		}
		out[id.String()] = lifecycle.Info{
			ID:         id,
			Status:     models.Unknown,
			StatusName: models.Unknown.String(),
			Stake:      new(big.Int),
		}
	}
	return out, nil
}

type CreateSubnetParams struct {
	Parent            string `json:"parent"`
	Name              string `json:"name"`
	MinValidatorStake string `json:"min_validator_stake"`
	MinValidators     uint64 `json:"min_validators"`
	FinalityThreshold float64 `json:"finality_threshold"`
	CheckPeriod       int64  `json:"check_period"`
}

type CreateSubnetResponse struct {
	SubnetID string `json:"subnet_id"`
}

func (d Deps) createSubnet(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p CreateSubnetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	parent, err := models.ParseSubnetID(p.Parent)
	if err != nil {
		return nil, agenterr.Configf("parent: %v", err)
	}
	stake, err := parseTokenAmount(p.MinValidatorStake)
	if err != nil {
		return nil, err
	}
	params := models.SubnetParams{
		MinValidatorStake:   stake,
		MinValidators:       p.MinValidators,
		FinalityThreshold:   p.FinalityThreshold,
		BottomUpCheckPeriod: p.CheckPeriod,
		TopDownCheckPeriod:  p.CheckPeriod,
	}
	if params.MinValidators == 0 {
		params.MinValidators = constants.DefaultMinValidators
	}
	if params.FinalityThreshold == 0 {
		params.FinalityThreshold = constants.DefaultFinalityThreshold
	}
	if params.BottomUpCheckPeriod == 0 {
		params.BottomUpCheckPeriod = constants.DefaultBottomUpCheckPeriod
		params.TopDownCheckPeriod = constants.DefaultTopDownCheckPeriod
	}
	id, err := d.Lifecycle.Create(parent, p.Name, params)
	if err != nil {
		return nil, err
	}
	return CreateSubnetResponse{SubnetID: id.String()}, nil
}

type JoinSubnetParams struct {
	Subnet           string `json:"subnet"`
	Account          string `json:"account"`
	Collateral       string `json:"collateral"`
	ValidatorNetAddr string `json:"validator_net_addr"`
}

func (d Deps) joinSubnet(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p JoinSubnetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	id, err := models.ParseSubnetID(p.Subnet)
	if err != nil {
		return nil, agenterr.Configf("subnet: %v", err)
	}
	collateral, err := parseTokenAmount(p.Collateral)
	if err != nil {
		return nil, err
	}
	if err := d.Lifecycle.Join(id, p.Account, collateral, p.ValidatorNetAddr); err != nil {
		return nil, err
	}
	return true, nil
}

type LeaveSubnetParams struct {
	Subnet  string `json:"subnet"`
	Account string `json:"account"`
}

func (d Deps) leaveSubnet(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p LeaveSubnetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	id, err := models.ParseSubnetID(p.Subnet)
	if err != nil {
		return nil, agenterr.Configf("subnet: %v", err)
	}
	if err := d.Lifecycle.Leave(id, p.Account); err != nil {
		return nil, err
	}
	return true, nil
}

type KillSubnetParams struct {
	Subnet string `json:"subnet"`
}

func (d Deps) killSubnet(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p KillSubnetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	id, err := models.ParseSubnetID(p.Subnet)
	if err != nil {
		return nil, agenterr.Configf("subnet: %v", err)
	}
	if err := d.Lifecycle.Kill(ctx, id); err != nil {
		return nil, err
	}
	return true, nil
}

// The returned snapshot carries the tipset it was observed at; queries are
// always answered from the tracker's latest view.
type QueryValidatorSetParams struct {
	Subnet string `json:"subnet"`
}

func (d Deps) queryValidatorSet(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p QueryValidatorSetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	id, err := models.ParseSubnetID(p.Subnet)
	if err != nil {
		return nil, agenterr.Configf("subnet: %v", err)
	}
	snap, ok := d.Scheduler.ValidatorSet(id)
	if !ok {
		return nil, fmt.Errorf("validator set for %s not yet observed", id)
	}
	return snap, nil
}

type ListCheckpointsParams struct {
	SubnetID  string `json:"subnet_id"`
	FromEpoch int64  `json:"from_epoch"`
	ToEpoch   int64  `json:"to_epoch"`
}

func (d Deps) listCheckpoints(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p ListCheckpointsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	id, err := models.ParseSubnetID(p.SubnetID)
	if err != nil {
		return nil, agenterr.Configf("subnet_id: %v", err)
	}
	return d.Scheduler.ListCheckpoints(id, p.FromEpoch, p.ToEpoch), nil
}

func (d Deps) reloadConfig(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	if d.Reload == nil {
		return nil, fmt.Errorf("config reload not wired")
	}
	if err := d.Reload(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func parseTokenAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, agenterr.Configf("invalid token amount %q", raw)
	}
	return n, nil
}
