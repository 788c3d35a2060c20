// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package models

import (
	"fmt"
	"math/big"
	"net/url"
)

// Status is the lifecycle state of a subnet as tracked by the agent.
type Status int

const (
	Unknown Status = iota
	Proposed
	Active
	Killed
)

func (s Status) String() string {
	switch s {
	case Proposed:
		return "Proposed"
	case Active:
		return "Active"
	case Killed:
		return "Killed"
	}
	return "Unknown"
}

// Subnet is one validated entry of the agent's config: a subnet the agent
// connects to and may act on behalf of.
type Subnet struct {
	ID          SubnetID `mapstructure:"id" json:"id"`
	GatewayAddr string   `mapstructure:"gateway_addr" json:"gateway_addr"`
	NetworkName string   `mapstructure:"network_name" json:"network_name"`
	RPCEndpoint string   `mapstructure:"jsonrpc_api_http" json:"jsonrpc_api_http"`
	AuthToken   string   `mapstructure:"auth_token" json:"auth_token,omitempty"`
	Accounts    []string `mapstructure:"accounts" json:"accounts,omitempty"`
}

func (s Subnet) Validate() error {
	if err := s.ID.Validate(); err != nil {
		return err
	}
	if s.GatewayAddr == "" {
		return fmt.Errorf("subnet %s: missing gateway address", s.ID)
	}
	if _, err := url.ParseRequestURI(s.RPCEndpoint); err != nil {
		return fmt.Errorf("subnet %s: invalid rpc endpoint %q: %w", s.ID, s.RPCEndpoint, err)
	}
	return nil
}

// Equal compares two subnet entries field by field.
func (s Subnet) Equal(o Subnet) bool {
	if s.ID != o.ID || s.GatewayAddr != o.GatewayAddr || s.NetworkName != o.NetworkName ||
		s.RPCEndpoint != o.RPCEndpoint || s.AuthToken != o.AuthToken {
		return false
	}
	if len(s.Accounts) != len(o.Accounts) {
		return false
	}
	for i := range s.Accounts {
		if s.Accounts[i] != o.Accounts[i] {
			return false
		}
	}
	return true
}

// HasAccount reports whether the agent is configured to act for addr on this
// subnet.
func (s Subnet) HasAccount(addr string) bool {
	for _, a := range s.Accounts {
		if a == addr {
			return true
		}
	}
	return false
}

// SubnetParams are fixed at subnet creation and immutable thereafter.
type SubnetParams struct {
	MinValidatorStake *big.Int
	MinValidators     uint64
	// FinalityThreshold is the fraction of total voting power whose
	// signatures make a checkpoint final, e.g. 2.0/3.0.
	FinalityThreshold   float64
	BottomUpCheckPeriod int64
	TopDownCheckPeriod  int64
}

func (p SubnetParams) Validate() error {
	if p.MinValidatorStake == nil || p.MinValidatorStake.Sign() <= 0 {
		return fmt.Errorf("min validator stake must be positive")
	}
	if p.MinValidators == 0 {
		return fmt.Errorf("min validators must be at least 1")
	}
	if p.FinalityThreshold <= 0 || p.FinalityThreshold > 1 {
		return fmt.Errorf("finality threshold must be in (0, 1], got %v", p.FinalityThreshold)
	}
	if p.BottomUpCheckPeriod <= 0 || p.TopDownCheckPeriod <= 0 {
		return fmt.Errorf("check periods must be positive")
	}
	return nil
}
