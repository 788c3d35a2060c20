// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

// Package registry owns the set of known subnets and their position in the
// tree. Readers work against immutable snapshots; writers build a new
// snapshot and swap it in atomically, so concurrent relay units never see a
// partially updated tree.
package registry

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/models"
)

// Edge is one parent/child relation in the subnet tree. Relay units are
// keyed by edges.
type Edge struct {
	Parent models.SubnetID
	Child  models.SubnetID
}

// Snapshot is an immutable view of the registry.
type Snapshot struct {
	subnets  map[models.SubnetID]models.Subnet
	children map[models.SubnetID][]models.SubnetID
}

func (s *Snapshot) Get(id models.SubnetID) (models.Subnet, bool) {
	sub, ok := s.subnets[id]
	return sub, ok
}

func (s *Snapshot) Has(id models.SubnetID) bool {
	_, ok := s.subnets[id]
	return ok
}

func (s *Snapshot) Children(id models.SubnetID) []models.SubnetID {
	return slices.Clone(s.children[id])
}

func (s *Snapshot) IDs() []models.SubnetID {
	ids := maps.Keys(s.subnets)
	slices.Sort(ids)
	return ids
}

// Edges lists every parent/child pair where both ends are registered.
func (s *Snapshot) Edges() []Edge {
	var edges []Edge
	for id := range s.subnets {
		parent, ok := id.Parent()
		if !ok {
			continue
		}
		if _, ok := s.subnets[parent]; ok {
			edges = append(edges, Edge{Parent: parent, Child: id})
		}
	}
	slices.SortFunc(edges, func(a, b Edge) bool {
		return a.Child < b.Child
	})
	return edges
}

// Registry is the single piece of state shared by all relay units.
type Registry struct {
	log *zap.SugaredLogger

	// writeMu serializes writers; readers go through the atomic pointer
	// only.
	writeMu sync.Mutex
	current atomic.Pointer[Snapshot]
}

func New(log *zap.SugaredLogger) *Registry {
	r := &Registry{log: log}
	r.current.Store(newSnapshot(nil))
	return r
}

func newSnapshot(subnets map[models.SubnetID]models.Subnet) *Snapshot {
	snap := &Snapshot{
		subnets:  make(map[models.SubnetID]models.Subnet, len(subnets)),
		children: make(map[models.SubnetID][]models.SubnetID),
	}
	for id, sub := range subnets {
		snap.subnets[id] = sub
		if parent, ok := id.Parent(); ok {
			snap.children[parent] = append(snap.children[parent], id)
		}
	}
	for _, kids := range snap.children {
		slices.Sort(kids)
	}
	return snap
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// AddSubnet registers conf. The parent must already be registered unless
// conf is the root.
func (r *Registry) AddSubnet(conf models.Subnet) error {
	if err := conf.Validate(); err != nil {
		return agenterr.Configf("add subnet: %v", err)
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	old := r.current.Load()
	if old.Has(conf.ID) {
		return agenterr.Configf("subnet %s already registered", conf.ID)
	}
	if parent, ok := conf.ID.Parent(); ok && !old.Has(parent) {
		return agenterr.Configf("subnet %s: parent %s not registered", conf.ID, parent)
	}

	next := maps.Clone(old.subnets)
	next[conf.ID] = conf
	r.current.Store(newSnapshot(next))
	r.log.Infow("subnet registered", "subnet", conf.ID)
	return nil
}

// RemoveSubnet unregisters id. Without cascade the call fails while any
// registered subnet still lists id as its parent; with cascade the whole
// subtree goes.
func (r *Registry) RemoveSubnet(id models.SubnetID, cascade bool) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	old := r.current.Load()
	if !old.Has(id) {
		return agenterr.Configf("subnet %s not registered", id)
	}
	kids := old.children[id]
	if len(kids) > 0 && !cascade {
		return agenterr.Configf("subnet %s still has %d child subnets", id, len(kids))
	}

	next := maps.Clone(old.subnets)
	removeSubtree(next, old, id)
	r.current.Store(newSnapshot(next))
	r.log.Infow("subnet removed", "subnet", id, "cascade", cascade)
	return nil
}

func removeSubtree(dst map[models.SubnetID]models.Subnet, snap *Snapshot, id models.SubnetID) {
	for _, kid := range snap.children[id] {
		removeSubtree(dst, snap, kid)
	}
	delete(dst, id)
}

// Reload atomically replaces the whole registry with newConfigs. The new
// set must form a tree: every non-root entry's parent must be present.
func (r *Registry) Reload(newConfigs []models.Subnet) error {
	next := make(map[models.SubnetID]models.Subnet, len(newConfigs))
	for _, conf := range newConfigs {
		if err := conf.Validate(); err != nil {
			return agenterr.Configf("reload: %v", err)
		}
		if _, ok := next[conf.ID]; ok {
			return agenterr.Configf("reload: duplicate subnet %s", conf.ID)
		}
		next[conf.ID] = conf
	}
	for id := range next {
		parent, ok := id.Parent()
		if !ok {
			continue
		}
		if _, ok := next[parent]; !ok {
			return agenterr.Configf("reload: subnet %s has unregistered parent %s", id, parent)
		}
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.current.Store(newSnapshot(next))
	r.log.Infow("registry reloaded", "subnets", len(next))
	return nil
}

// DiffEdges reports the relay edges to start and to cancel when moving from
// prev to next. A nil prev means nothing was running yet.
func DiffEdges(prev, next *Snapshot) (started, cancelled []Edge) {
	prevEdges := make(map[Edge]struct{})
	if prev != nil {
		for _, e := range prev.Edges() {
			prevEdges[e] = struct{}{}
		}
	}
	for _, e := range next.Edges() {
		if _, ok := prevEdges[e]; ok {
			delete(prevEdges, e)
			continue
		}
		started = append(started, e)
	}
	cancelled = maps.Keys(prevEdges)
	slices.SortFunc(cancelled, func(a, b Edge) bool {
		return a.Child < b.Child
	})
	return started, cancelled
}
