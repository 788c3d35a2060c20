// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffValidatorSets(t *testing.T) {
	require := require.New(t)

	prev := &ValidatorSetSnapshot{
		SubnetID: "/root/t01001",
		Validators: []Validator{
			{Address: "t1aaa", VotingPower: 10},
			{Address: "t1bbb", VotingPower: 20},
		},
	}
	next := &ValidatorSetSnapshot{
		SubnetID: "/root/t01001",
		Validators: []Validator{
			{Address: "t1bbb", VotingPower: 25},
			{Address: "t1ccc", VotingPower: 5},
		},
	}

	diff := DiffValidatorSets(prev, next)
	require.Len(diff.Added, 1)
	require.Equal("t1ccc", diff.Added[0].Address)
	require.Len(diff.Removed, 1)
	require.Equal("t1aaa", diff.Removed[0].Address)
	require.Len(diff.Reweighted, 1)
	require.Equal("t1bbb", diff.Reweighted[0].Address)
	require.Equal(uint64(25), diff.Reweighted[0].VotingPower)
	require.False(diff.Empty())
}

func TestDiffValidatorSetsNilPrev(t *testing.T) {
	require := require.New(t)

	next := &ValidatorSetSnapshot{
		Validators: []Validator{{Address: "t1aaa", VotingPower: 10}},
	}
	diff := DiffValidatorSets(nil, next)
	require.Len(diff.Added, 1)
	require.Empty(diff.Removed)
	require.Empty(diff.Reweighted)
}

func TestDiffValidatorSetsUnchanged(t *testing.T) {
	require := require.New(t)

	set := &ValidatorSetSnapshot{
		Validators: []Validator{{Address: "t1aaa", VotingPower: 10}},
	}
	require.True(DiffValidatorSets(set, set).Empty())
}

func TestValidatorSetSnapshotTotalPower(t *testing.T) {
	require := require.New(t)

	set := &ValidatorSetSnapshot{
		Validators: []Validator{
			{Address: "t1aaa", VotingPower: 10},
			{Address: "t1bbb", VotingPower: 20},
		},
	}
	require.Equal(uint64(30), set.TotalPower())

	v, ok := set.Find("t1bbb")
	require.True(ok)
	require.Equal(uint64(20), v.VotingPower)
	_, ok = set.Find("t1zzz")
	require.False(ok)
}
