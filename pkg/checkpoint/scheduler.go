// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

// Package checkpoint drives the periodic checkpoint exchange between parent
// and child subnets: one independent relay unit per edge, nonce-sequenced
// submissions, and gap repair from the destination's confirmed state.
package checkpoint

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/registry"
	"github.com/protofire/ipc-agent/pkg/rpc"
	"github.com/protofire/ipc-agent/pkg/tracker"
)

// ParamsSource resolves a child subnet's checkpointing parameters.
// Implemented by the lifecycle manager; children created out of band fall
// back to defaults.
type ParamsSource interface {
	SubnetParams(child models.SubnetID) (models.SubnetParams, bool)
}

type unit struct {
	relay   *Relay
	cancel  context.CancelFunc
	done    chan struct{}
	tracker *tracker.Tracker
}

// Scheduler keeps one relay unit running per registered parent/child edge.
// Units share no mutable state; the scheduler only starts and cancels them
// as registry snapshots come and go.
type Scheduler struct {
	log          *zap.SugaredLogger
	pool         *rpc.Pool
	store        *Store
	params       ParamsSource
	topdown      TopDownSource
	events       chan<- tracker.Event
	pollInterval time.Duration

	mu      sync.Mutex
	units   map[registry.Edge]*unit
	applied *registry.Snapshot
}

type SchedulerOpts struct {
	Pool         *rpc.Pool
	Store        *Store
	Params       ParamsSource
	TopDown      TopDownSource
	Events       chan<- tracker.Event
	PollInterval time.Duration
}

func NewScheduler(log *zap.SugaredLogger, opts SchedulerOpts) *Scheduler {
	return &Scheduler{
		log:          log.Named("scheduler"),
		pool:         opts.Pool,
		store:        opts.Store,
		params:       opts.Params,
		topdown:      opts.TopDown,
		events:       opts.Events,
		pollInterval: opts.PollInterval,
		units:        make(map[registry.Edge]*unit),
	}
}

// Apply aligns the running relay units with a registry snapshot: edges new
// to the snapshot start fresh units, edges gone from it are cancelled and
// drained.
func (s *Scheduler) Apply(ctx context.Context, snap *registry.Snapshot) {
	s.pool.Rebuild(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	started, cancelled := registry.DiffEdges(s.applied, snap)
	s.applied = snap
	for _, edge := range cancelled {
		u, ok := s.units[edge]
		if !ok {
			continue
		}
		u.cancel()
		<-u.done // cooperative drain
		delete(s.units, edge)
		s.log.Infow("relay cancelled", "child", edge.Child)
	}
	for _, edge := range started {
		if _, ok := s.units[edge]; ok {
			continue
		}
		if err := s.startUnit(ctx, edge); err != nil {
			s.log.Errorw("relay start failed", "child", edge.Child, "err", err)
		}
	}
}

func (s *Scheduler) startUnit(ctx context.Context, edge registry.Edge) error {
	parentGw, err := s.pool.Get(ctx, edge.Parent)
	if err != nil {
		return err
	}
	childGw, err := s.pool.Get(ctx, edge.Child)
	if err != nil {
		return err
	}
	params := s.paramsFor(edge.Child)

	tr := tracker.New(s.log, edge.Child, childGw, params.MinValidators,
		s.trackerInterval(params), s.events)
	relay := NewRelay(s.log, RelayOpts{
		Edge:         edge,
		Parent:       parentGw,
		Child:        childGw,
		Tracker:      tr,
		Collector:    NewVoteCollector(s.log, childGw),
		Params:       params,
		Store:        s.store,
		TopDown:      s.topdown,
		PollInterval: s.pollInterval,
	})

	unitCtx, cancel := context.WithCancel(context.Background())
	u := &unit{relay: relay, cancel: cancel, done: make(chan struct{}), tracker: tr}
	s.units[edge] = u

	go func() {
		defer close(u.done)
		g, runCtx := errgroup.WithContext(unitCtx)
		g.Go(func() error {
			tr.Run(runCtx)
			return runCtx.Err()
		})
		g.Go(func() error {
			return relay.Run(runCtx)
		})
		if err := g.Wait(); err != nil && err != context.Canceled {
			s.log.Warnw("relay unit exited", "child", edge.Child, "err", err)
		}
	}()
	s.log.Infow("relay started", "parent", edge.Parent, "child", edge.Child)
	return nil
}

func (s *Scheduler) paramsFor(child models.SubnetID) models.SubnetParams {
	if s.params != nil {
		if p, ok := s.params.SubnetParams(child); ok {
			return p
		}
	}
	return defaultParams()
}

func (s *Scheduler) trackerInterval(params models.SubnetParams) time.Duration {
	// the poll interval stands in for epoch duration here; the tracker must
	// poll no coarser than the smaller check period
	return tracker.PollInterval(params, s.pollInterval)
}

// Stop cancels every unit and waits for their in-flight work to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for edge, u := range s.units {
		u.cancel()
		<-u.done
		delete(s.units, edge)
	}
}

// FinalCheckpoint forces one settling bottom-up checkpoint for child,
// invoked by the lifecycle manager ahead of a kill.
func (s *Scheduler) FinalCheckpoint(ctx context.Context, child models.SubnetID) error {
	s.mu.Lock()
	var target *Relay
	for edge, u := range s.units {
		if edge.Child == child {
			target = u.relay
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return fmt.Errorf("no relay running for subnet %s", child)
	}
	return target.Settle(ctx)
}

// ValidatorSet returns the tracker snapshot for subnet id, if a unit is
// tracking it.
func (s *Scheduler) ValidatorSet(id models.SubnetID) (*models.ValidatorSetSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for edge, u := range s.units {
		if edge.Child == id {
			snap := u.tracker.Snapshot()
			return snap, snap != nil
		}
	}
	return nil, false
}

// ListCheckpoints returns the confirmed bottom-up records for child whose
// window overlaps [fromEpoch, toEpoch].
func (s *Scheduler) ListCheckpoints(child models.SubnetID, fromEpoch, toEpoch int64) []*models.CheckpointRecord {
	return s.store.Confirmed(child, BottomUp, fromEpoch, toEpoch)
}

func defaultParams() models.SubnetParams {
	return models.SubnetParams{
		MinValidatorStake:   defaultMinStake(),
		MinValidators:       constants.DefaultMinValidators,
		FinalityThreshold:   constants.DefaultFinalityThreshold,
		BottomUpCheckPeriod: constants.DefaultBottomUpCheckPeriod,
		TopDownCheckPeriod:  constants.DefaultTopDownCheckPeriod,
	}
}

// defaultMinStake is 1 FIL in atto.
func defaultMinStake() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}
