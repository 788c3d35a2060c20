// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

// Package lifecycle executes subnet create/join/leave/kill operations and
// owns the collateral ledger backing them.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/registry"
	"github.com/protofire/ipc-agent/pkg/tracker"
)

// Settler forces the final settling checkpoint ahead of a kill.
// Implemented by the checkpoint scheduler.
type Settler interface {
	FinalCheckpoint(ctx context.Context, child models.SubnetID) error
}

// ledgerEntry is one account's stake in a subnet.
type ledgerEntry struct {
	Locked  *big.Int
	NetAddr string
	// ReleasedAt records when the stake was unlocked on leave. Funds are
	// released immediately; the timestamp leaves room for an unbonding
	// gate later without a ledger migration.
	ReleasedAt time.Time
}

type subnetState struct {
	params   models.SubnetParams
	status   models.Status
	degraded bool

	ledger  map[string]*ledgerEntry // account -> stake
	pending models.ValidatorDiff    // changes awaiting top-down propagation
}

// activeValidators counts accounts whose locked stake meets the minimum.
func (st *subnetState) activeValidators() int {
	n := 0
	for _, e := range st.ledger {
		if e.Locked.Sign() > 0 && e.Locked.Cmp(st.params.MinValidatorStake) >= 0 {
			n++
		}
	}
	return n
}

func (st *subnetState) totalStake() *big.Int {
	total := new(big.Int)
	for _, e := range st.ledger {
		total.Add(total, e.Locked)
	}
	return total
}

// Manager owns SubnetLifecycleState and the collateral ledgers. The
// scheduler and tracker observe it through the ParamsSource and
// TopDownSource interfaces.
type Manager struct {
	log     *zap.SugaredLogger
	reg     *registry.Registry
	settler Settler

	mu      sync.Mutex
	subnets map[models.SubnetID]*subnetState
}

func NewManager(log *zap.SugaredLogger, reg *registry.Registry) *Manager {
	return &Manager{
		log:     log.Named("lifecycle"),
		reg:     reg,
		subnets: make(map[models.SubnetID]*subnetState),
	}
}

// SetSettler wires the checkpoint scheduler in after construction; the two
// components reference each other only through small interfaces.
func (m *Manager) SetSettler(s Settler) {
	m.settler = s
}

// Create derives the deterministic child id from parent and name and
// registers the subnet as Proposed. Parameters are fixed here and
// immutable afterwards.
func (m *Manager) Create(parent models.SubnetID, name string, params models.SubnetParams) (models.SubnetID, error) {
	if name == "" {
		return "", agenterr.Configf("subnet name is empty")
	}
	if err := params.Validate(); err != nil {
		return "", agenterr.Configf("subnet params: %v", err)
	}
	if !m.reg.Snapshot().Has(parent) {
		return "", agenterr.Configf("parent subnet %s not registered", parent)
	}
	id := models.NewSubnetID(parent, name)
	if err := id.Validate(); err != nil {
		return "", agenterr.Configf("derived subnet id: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subnets[id]; ok {
		return "", agenterr.Lifecyclef("subnet %s already exists", id)
	}
	m.subnets[id] = &subnetState{
		params: params,
		status: models.Proposed,
		ledger: make(map[string]*ledgerEntry),
	}
	m.log.Infow("subnet created", "subnet", id,
		"min_validators", params.MinValidators,
		"min_stake", params.MinValidatorStake.String())
	return id, nil
}

// Join locks collateral for account and records its validator endpoint.
// Once enough accounts have joined with sufficient stake the subnet
// transitions Proposed -> Active.
func (m *Manager) Join(subnet models.SubnetID, account string, collateral *big.Int, netAddr string) error {
	if collateral == nil {
		collateral = new(big.Int)
	}
	if err := m.checkAccount(subnet, account); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subnets[subnet]
	if !ok {
		return agenterr.Lifecyclef("subnet %s does not exist", subnet)
	}
	if st.status == models.Killed {
		return agenterr.Lifecyclef("subnet %s is killed", subnet)
	}
	if collateral.Cmp(st.params.MinValidatorStake) < 0 {
		return fmt.Errorf("%w: %s < minimum %s", agenterr.ErrInsufficientCollateral,
			collateral.String(), st.params.MinValidatorStake.String())
	}

	entry, ok := st.ledger[account]
	if !ok {
		entry = &ledgerEntry{Locked: new(big.Int)}
		st.ledger[account] = entry
	}
	entry.Locked.Add(entry.Locked, collateral)
	entry.NetAddr = netAddr
	entry.ReleasedAt = time.Time{}

	v := models.Validator{
		Address:     account,
		NetAddr:     netAddr,
		VotingPower: votingPower(entry.Locked, st.params.MinValidatorStake),
	}
	st.pending.Added = append(st.pending.Added, v)

	if uint64(st.activeValidators()) >= st.params.MinValidators {
		if st.status == models.Proposed {
			st.status = models.Active
			m.log.Infow("subnet activated", "subnet", subnet, "validators", st.activeValidators())
		}
		if st.degraded {
			st.degraded = false
			m.log.Infow("subnet recovered", "subnet", subnet, "validators", st.activeValidators())
		}
	}
	m.log.Infow("validator joined", "subnet", subnet, "account", account,
		"collateral", collateral.String())
	return nil
}

// Leave unlocks account's collateral. Dropping below the minimum validator
// count only degrades the subnet; checkpoints already submitted stay valid.
func (m *Manager) Leave(subnet models.SubnetID, account string) error {
	if err := m.checkAccount(subnet, account); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subnets[subnet]
	if !ok {
		return agenterr.Lifecyclef("subnet %s does not exist", subnet)
	}
	if st.status == models.Killed {
		return agenterr.Lifecyclef("subnet %s is killed", subnet)
	}
	entry, ok := st.ledger[account]
	if !ok || entry.Locked.Sign() == 0 {
		return agenterr.Lifecyclef("account %s holds no collateral in %s", account, subnet)
	}

	released := new(big.Int).Set(entry.Locked)
	entry.Locked.SetInt64(0)
	entry.ReleasedAt = time.Now()
	st.pending.Removed = append(st.pending.Removed, models.Validator{
		Address: account,
		NetAddr: entry.NetAddr,
	})

	if st.status == models.Active && uint64(st.activeValidators()) < st.params.MinValidators {
		st.degraded = true
		m.log.Warnw("subnet degraded after leave", "subnet", subnet,
			"validators", st.activeValidators(), "min", st.params.MinValidators)
	}
	m.log.Infow("validator left", "subnet", subnet, "account", account,
		"released", released.String())
	return nil
}

// Kill transitions an Active subnet to Killed, terminal and irreversible.
// Every account must have exited first; one final checkpoint settles
// outstanding cross-messages before the transition.
func (m *Manager) Kill(ctx context.Context, subnet models.SubnetID) error {
	m.mu.Lock()
	st, ok := m.subnets[subnet]
	if !ok {
		m.mu.Unlock()
		return agenterr.Lifecyclef("subnet %s does not exist", subnet)
	}
	if st.status != models.Active {
		m.mu.Unlock()
		return agenterr.Lifecyclef("subnet %s is %s, only Active subnets can be killed", subnet, st.status)
	}
	for account, e := range st.ledger {
		if e.Locked.Sign() > 0 {
			m.mu.Unlock()
			return agenterr.Lifecyclef("account %s still holds locked collateral in %s", account, subnet)
		}
	}
	m.mu.Unlock()

	if m.settler != nil {
		if err := m.settler.FinalCheckpoint(ctx, subnet); err != nil {
			// with every validator gone the settling quorum may be out of
			// reach; only structural failures block the kill
			if !agenterr.Transient(err) && !errors.Is(err, agenterr.ErrQuorumNotReached) {
				return err
			}
			m.log.Warnw("final checkpoint not settled", "subnet", subnet, "err", err)
		}
	}

	m.mu.Lock()
	st.status = models.Killed
	st.degraded = false
	m.mu.Unlock()
	m.log.Infow("subnet killed", "subnet", subnet)
	return nil
}

// checkAccount enforces that the agent is configured to act for account on
// the subnet's parent, where join/leave transactions land. An empty
// accounts list in the config means no restriction.
func (m *Manager) checkAccount(subnet models.SubnetID, account string) error {
	if account == "" {
		return agenterr.Configf("account is empty")
	}
	parent, ok := subnet.Parent()
	if !ok {
		return agenterr.Configf("subnet %s has no parent", subnet)
	}
	conf, ok := m.reg.Snapshot().Get(parent)
	if !ok || len(conf.Accounts) == 0 {
		return nil
	}
	if !conf.HasAccount(account) {
		return agenterr.Configf("account %s not configured for subnet %s", account, parent)
	}
	return nil
}

// HandleEvents consumes tracker events, mirroring observed degradation into
// the lifecycle state for operator visibility.
func (m *Manager) HandleEvents(ctx context.Context, events <-chan tracker.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.applyEvent(ev)
		}
	}
}

func (m *Manager) applyEvent(ev tracker.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subnets[ev.SubnetID]
	switch ev.Kind {
	case tracker.Degraded:
		if ok && st.status == models.Active {
			st.degraded = true
		}
		m.log.Warnw("subnet degraded", "subnet", ev.SubnetID, "validators", ev.Count)
	case tracker.Recovered:
		if ok {
			st.degraded = false
		}
		m.log.Infow("subnet recovered", "subnet", ev.SubnetID, "validators", ev.Count)
	case tracker.SetChanged:
		m.log.Infow("validator set changed", "subnet", ev.SubnetID,
			"added", len(ev.Diff.Added), "removed", len(ev.Diff.Removed),
			"reweighted", len(ev.Diff.Reweighted))
	}
}

// votingPower weights a validator by how many minimum stakes it has locked.
func votingPower(locked, minStake *big.Int) uint64 {
	if minStake.Sign() <= 0 {
		return 0
	}
	return new(big.Int).Div(locked, minStake).Uint64()
}
