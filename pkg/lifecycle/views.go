// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package lifecycle

import (
	"math/big"

	"golang.org/x/exp/slices"

	"github.com/protofire/ipc-agent/pkg/models"
)

// Info is the operator-facing summary of one subnet's lifecycle state.
type Info struct {
	ID         models.SubnetID `json:"id"`
	Status     models.Status   `json:"-"`
	StatusName string          `json:"status"`
	Degraded   bool            `json:"degraded"`
	Stake      *big.Int        `json:"stake"`
	Validators int             `json:"validators"`
}

// SubnetParams implements checkpoint.ParamsSource.
func (m *Manager) SubnetParams(child models.SubnetID) (models.SubnetParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subnets[child]
	if !ok {
		return models.SubnetParams{}, false
	}
	return st.params, true
}

// PendingValidatorChanges implements checkpoint.TopDownSource: it drains
// the joins and leaves accumulated since the last top-down checkpoint.
func (m *Manager) PendingValidatorChanges(child models.SubnetID) models.ValidatorDiff {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subnets[child]
	if !ok {
		return models.ValidatorDiff{}
	}
	out := st.pending
	st.pending = models.ValidatorDiff{}
	return out
}

// Status returns the lifecycle state and degraded flag for subnet id.
func (m *Manager) Status(id models.SubnetID) (models.Status, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subnets[id]
	if !ok {
		return models.Unknown, false, false
	}
	return st.status, st.degraded, true
}

// Collateral returns account's locked stake in subnet id.
func (m *Manager) Collateral(id models.SubnetID, account string) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subnets[id]
	if !ok {
		return new(big.Int)
	}
	e, ok := st.ledger[account]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(e.Locked)
}

// ListChildren summarizes the lifecycle state of every child of parent.
func (m *Manager) ListChildren(parent models.SubnetID) []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	var infos []Info
	for id, st := range m.subnets {
		if !id.IsChildOf(parent) {
			continue
		}
		infos = append(infos, Info{
			ID:         id,
			Status:     st.status,
			StatusName: st.status.String(),
			Degraded:   st.degraded,
			Stake:      st.totalStake(),
			Validators: st.activeValidators(),
		})
	}
	slices.SortFunc(infos, func(a, b Info) bool {
		return a.ID < b.ID
	})
	return infos
}
