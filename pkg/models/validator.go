// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package models

import (
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/exp/slices"
)

// Validator is one member of a subnet's active validator set.
type Validator struct {
	Address     string `json:"addr"`
	NetAddr     string `json:"net_addr,omitempty"`
	VotingPower uint64 `json:"voting_power"`
}

// ValidatorSetSnapshot is the active validator set of a subnet as observed
// at a given tipset. It is replaced wholesale on every successful poll.
type ValidatorSetSnapshot struct {
	SubnetID   SubnetID    `json:"subnet_id"`
	TipSet     common.Hash `json:"tip_set"`
	Epoch      int64       `json:"epoch"`
	Validators []Validator `json:"validators"`
}

func (s *ValidatorSetSnapshot) TotalPower() uint64 {
	var total uint64
	for _, v := range s.Validators {
		total += v.VotingPower
	}
	return total
}

func (s *ValidatorSetSnapshot) Find(addr string) (Validator, bool) {
	for _, v := range s.Validators {
		if v.Address == addr {
			return v, true
		}
	}
	return Validator{}, false
}

// ValidatorDiff is the membership change between two consecutive snapshots.
type ValidatorDiff struct {
	Added      []Validator `json:"added,omitempty"`
	Removed    []Validator `json:"removed,omitempty"`
	Reweighted []Validator `json:"reweighted,omitempty"`
}

func (d ValidatorDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Reweighted) == 0
}

// DiffValidatorSets compares prev against next. A nil prev treats every
// validator in next as added.
func DiffValidatorSets(prev, next *ValidatorSetSnapshot) ValidatorDiff {
	var diff ValidatorDiff
	if prev == nil {
		if next != nil {
			diff.Added = slices.Clone(next.Validators)
		}
		return diff
	}
	for _, v := range next.Validators {
		old, ok := prev.Find(v.Address)
		switch {
		case !ok:
			diff.Added = append(diff.Added, v)
		case old.VotingPower != v.VotingPower:
			diff.Reweighted = append(diff.Reweighted, v)
		}
	}
	for _, v := range prev.Validators {
		if _, ok := next.Find(v.Address); !ok {
			diff.Removed = append(diff.Removed, v)
		}
	}
	return diff
}
