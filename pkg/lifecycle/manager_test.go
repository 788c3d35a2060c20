// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package lifecycle

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/registry"
	"github.com/protofire/ipc-agent/pkg/tracker"
)

func testManager(t *testing.T, accounts ...string) *Manager {
	t.Helper()
	reg := registry.New(zap.NewNop().Sugar())
	require.NoError(t, reg.AddSubnet(models.Subnet{
		ID:          models.RootSubnetID,
		GatewayAddr: "t064",
		RPCEndpoint: "http://127.0.0.1:1234/rpc/v1",
		Accounts:    accounts,
	}))
	return NewManager(zap.NewNop().Sugar(), reg)
}

func testParams(minValidators uint64) models.SubnetParams {
	return models.SubnetParams{
		MinValidatorStake:   big.NewInt(10),
		MinValidators:       minValidators,
		FinalityThreshold:   2.0 / 3.0,
		BottomUpCheckPeriod: 30,
		TopDownCheckPeriod:  30,
	}
}

func TestCreateSubnet(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(2))
	require.NoError(err)
	require.Equal(models.SubnetID("/root/andromeda"), id)

	status, degraded, ok := m.Status(id)
	require.True(ok)
	require.Equal(models.Proposed, status)
	require.False(degraded)

	// duplicate names collide on the derived id
	_, err = m.Create(models.RootSubnetID, "andromeda", testParams(2))
	require.ErrorIs(err, agenterr.ErrLifecycleConflict)

	_, err = m.Create(models.RootSubnetID, "", testParams(2))
	require.ErrorIs(err, agenterr.ErrConfig)

	_, err = m.Create("/root/t09999", "orphan", testParams(2))
	require.ErrorIs(err, agenterr.ErrConfig)

	bad := testParams(2)
	bad.MinValidatorStake = big.NewInt(0)
	_, err = m.Create(models.RootSubnetID, "nebula", bad)
	require.ErrorIs(err, agenterr.ErrConfig)
}

func TestJoinActivatesAtMinValidators(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(2))
	require.NoError(err)

	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), "/ip4/10.0.0.1/tcp/1347"))
	status, _, _ := m.Status(id)
	require.Equal(models.Proposed, status)

	require.NoError(m.Join(id, "t1bbb", big.NewInt(15), "/ip4/10.0.0.2/tcp/1347"))
	status, _, _ = m.Status(id)
	require.Equal(models.Active, status)

	require.Equal(big.NewInt(10), m.Collateral(id, "t1aaa"))
	require.Equal(big.NewInt(15), m.Collateral(id, "t1bbb"))

	// a repeat join tops up the same account's stake
	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), "/ip4/10.0.0.1/tcp/1347"))
	require.Equal(big.NewInt(20), m.Collateral(id, "t1aaa"))
}

func TestJoinRejectsInsufficientCollateral(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(1))
	require.NoError(err)

	err = m.Join(id, "t1aaa", big.NewInt(9), "")
	require.ErrorIs(err, agenterr.ErrInsufficientCollateral)
	require.Equal(new(big.Int), m.Collateral(id, "t1aaa"))
	status, _, _ := m.Status(id)
	require.Equal(models.Proposed, status)

	err = m.Join(id, "t1aaa", nil, "")
	require.ErrorIs(err, agenterr.ErrInsufficientCollateral)

	err = m.Join("/root/nowhere", "t1aaa", big.NewInt(10), "")
	require.ErrorIs(err, agenterr.ErrLifecycleConflict)
}

func TestJoinEnforcesConfiguredAccounts(t *testing.T) {
	require := require.New(t)
	m := testManager(t, "t1aaa", "t1bbb")

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(1))
	require.NoError(err)

	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), ""))
	err = m.Join(id, "t1zzz", big.NewInt(10), "")
	require.ErrorIs(err, agenterr.ErrConfig)
	err = m.Join(id, "", big.NewInt(10), "")
	require.ErrorIs(err, agenterr.ErrConfig)

	// leave is gated on the same account list
	require.ErrorIs(m.Leave(id, "t1zzz"), agenterr.ErrConfig)
	require.ErrorIs(m.Leave(id, ""), agenterr.ErrConfig)
	require.NoError(m.Leave(id, "t1aaa"))
}

func TestJoinClearsDegradedOnRecovery(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(2))
	require.NoError(err)
	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), ""))
	require.NoError(m.Join(id, "t1bbb", big.NewInt(10), ""))

	require.NoError(m.Leave(id, "t1bbb"))
	status, degraded, _ := m.Status(id)
	require.Equal(models.Active, status)
	require.True(degraded)

	// a fresh join restores the count and lifts the flag
	require.NoError(m.Join(id, "t1ccc", big.NewInt(10), ""))
	status, degraded, _ = m.Status(id)
	require.Equal(models.Active, status)
	require.False(degraded)

	// a top-up below the minimum count does not
	require.NoError(m.Leave(id, "t1ccc"))
	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), ""))
	_, degraded, _ = m.Status(id)
	require.True(degraded)
}

func TestLeaveReleasesCollateralAndDegrades(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(2))
	require.NoError(err)
	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), ""))
	require.NoError(m.Join(id, "t1bbb", big.NewInt(10), ""))
	require.NoError(m.Join(id, "t1ccc", big.NewInt(10), ""))

	// three validators against a minimum of two: one leave keeps it Active
	require.NoError(m.Leave(id, "t1ccc"))
	status, degraded, _ := m.Status(id)
	require.Equal(models.Active, status)
	require.False(degraded)
	require.Equal(new(big.Int), m.Collateral(id, "t1ccc"))

	// dropping below the minimum degrades but never deactivates
	require.NoError(m.Leave(id, "t1bbb"))
	status, degraded, _ = m.Status(id)
	require.Equal(models.Active, status)
	require.True(degraded)

	// leaving twice, or with nothing locked, is rejected
	require.ErrorIs(m.Leave(id, "t1ccc"), agenterr.ErrLifecycleConflict)
	require.ErrorIs(m.Leave(id, "t1zzz"), agenterr.ErrLifecycleConflict)
}

type settlerFunc func(ctx context.Context, child models.SubnetID) error

func (f settlerFunc) FinalCheckpoint(ctx context.Context, child models.SubnetID) error {
	return f(ctx, child)
}

func TestKillLifecycle(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(1))
	require.NoError(err)

	// Proposed subnets cannot be killed
	require.ErrorIs(m.Kill(context.Background(), id), agenterr.ErrLifecycleConflict)

	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), ""))

	// locked collateral blocks the kill
	require.ErrorIs(m.Kill(context.Background(), id), agenterr.ErrLifecycleConflict)

	require.NoError(m.Leave(id, "t1aaa"))

	settled := false
	m.SetSettler(settlerFunc(func(_ context.Context, child models.SubnetID) error {
		settled = true
		require.Equal(id, child)
		return nil
	}))
	require.NoError(m.Kill(context.Background(), id))
	require.True(settled)

	status, degraded, _ := m.Status(id)
	require.Equal(models.Killed, status)
	require.False(degraded)

	// terminal: no joins, no second kill
	require.ErrorIs(m.Join(id, "t1aaa", big.NewInt(10), ""), agenterr.ErrLifecycleConflict)
	require.ErrorIs(m.Kill(context.Background(), id), agenterr.ErrLifecycleConflict)
	require.ErrorIs(m.Kill(context.Background(), "/root/nowhere"), agenterr.ErrLifecycleConflict)
}

func TestKillToleratesUnsettledQuorum(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(1))
	require.NoError(err)
	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), ""))
	require.NoError(m.Leave(id, "t1aaa"))

	// with all validators gone the settling quorum is unreachable; the kill
	// proceeds anyway
	m.SetSettler(settlerFunc(func(context.Context, models.SubnetID) error {
		return agenterr.ErrQuorumNotReached
	}))
	require.NoError(m.Kill(context.Background(), id))
	status, _, _ := m.Status(id)
	require.Equal(models.Killed, status)
}

func TestKillBlockedByStructuralSettleFailure(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(1))
	require.NoError(err)
	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), ""))
	require.NoError(m.Leave(id, "t1aaa"))

	m.SetSettler(settlerFunc(func(context.Context, models.SubnetID) error {
		return agenterr.Authf("endpoint rejected credentials")
	}))
	require.ErrorIs(m.Kill(context.Background(), id), agenterr.ErrAuth)
	status, _, _ := m.Status(id)
	require.Equal(models.Active, status)
}

func TestPendingValidatorChangesDrain(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(1))
	require.NoError(err)
	require.NoError(m.Join(id, "t1aaa", big.NewInt(30), "/ip4/10.0.0.1/tcp/1347"))
	require.NoError(m.Leave(id, "t1aaa"))

	diff := m.PendingValidatorChanges(id)
	require.Len(diff.Added, 1)
	require.Equal("t1aaa", diff.Added[0].Address)
	// voting power counts whole minimum stakes
	require.Equal(uint64(3), diff.Added[0].VotingPower)
	require.Len(diff.Removed, 1)

	// drained: the next checkpoint carries nothing
	require.True(m.PendingValidatorChanges(id).Empty())
	require.True(m.PendingValidatorChanges("/root/nowhere").Empty())
}

func TestSubnetParamsSource(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(2))
	require.NoError(err)

	params, ok := m.SubnetParams(id)
	require.True(ok)
	require.Equal(uint64(2), params.MinValidators)
	require.Equal(int64(30), params.BottomUpCheckPeriod)

	_, ok = m.SubnetParams("/root/nowhere")
	require.False(ok)
}

func TestListChildren(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	idB, err := m.Create(models.RootSubnetID, "borealis", testParams(1))
	require.NoError(err)
	idA, err := m.Create(models.RootSubnetID, "andromeda", testParams(1))
	require.NoError(err)
	require.NoError(m.Join(idA, "t1aaa", big.NewInt(25), ""))

	infos := m.ListChildren(models.RootSubnetID)
	require.Len(infos, 2)
	require.Equal(idA, infos[0].ID)
	require.Equal("Active", infos[0].StatusName)
	require.Equal(big.NewInt(25), infos[0].Stake)
	require.Equal(1, infos[0].Validators)
	require.Equal(idB, infos[1].ID)
	require.Equal("Proposed", infos[1].StatusName)

	require.Empty(m.ListChildren("/root/andromeda"))
}

func TestApplyTrackerEvents(t *testing.T) {
	require := require.New(t)
	m := testManager(t)

	id, err := m.Create(models.RootSubnetID, "andromeda", testParams(1))
	require.NoError(err)
	require.NoError(m.Join(id, "t1aaa", big.NewInt(10), ""))

	m.applyEvent(tracker.Event{SubnetID: id, Kind: tracker.Degraded, Count: 0})
	_, degraded, _ := m.Status(id)
	require.True(degraded)

	m.applyEvent(tracker.Event{SubnetID: id, Kind: tracker.Recovered, Count: 1})
	_, degraded, _ = m.Status(id)
	require.False(degraded)

	// events for unknown subnets are logged and dropped
	m.applyEvent(tracker.Event{SubnetID: "/root/nowhere", Kind: tracker.Degraded})
}
