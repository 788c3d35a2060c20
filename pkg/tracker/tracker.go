// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

// Package tracker polls each subnet's active validator set, diffs it
// against the previous snapshot and flags subnets whose membership falls
// below the minimum needed to gather a checkpoint quorum.
package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/rpc"
)

type EventKind int

const (
	SetChanged EventKind = iota
	Degraded
	Recovered
)

func (k EventKind) String() string {
	switch k {
	case SetChanged:
		return "validator set changed"
	case Degraded:
		return "degraded"
	case Recovered:
		return "recovered"
	}
	return "unknown"
}

// Event reports a membership change or a degradation transition. These are
// operator-visibility signals, not errors.
type Event struct {
	SubnetID models.SubnetID
	Kind     EventKind
	Diff     models.ValidatorDiff
	Count    int
}

// Tracker owns the current validator set snapshot for one subnet.
type Tracker struct {
	log           *zap.SugaredLogger
	subnet        models.SubnetID
	gw            rpc.Gateway
	minValidators uint64
	interval      time.Duration
	events        chan<- Event

	mu       sync.RWMutex
	last     *models.ValidatorSetSnapshot
	degraded bool
}

// New builds a tracker polling gw every interval. The interval must be no
// coarser than the smaller of the subnet's two check periods; PollInterval
// computes a compliant value from the subnet params.
func New(log *zap.SugaredLogger, subnet models.SubnetID, gw rpc.Gateway, minValidators uint64, interval time.Duration, events chan<- Event) *Tracker {
	return &Tracker{
		log:           log.Named("tracker").With("subnet", subnet),
		subnet:        subnet,
		gw:            gw,
		minValidators: minValidators,
		interval:      interval,
		events:        events,
	}
}

// PollInterval derives the tracker cadence from the subnet's check periods,
// assuming epochDuration per epoch, floored at MinPollInterval.
func PollInterval(params models.SubnetParams, epochDuration time.Duration) time.Duration {
	period := params.BottomUpCheckPeriod
	if params.TopDownCheckPeriod < period {
		period = params.TopDownCheckPeriod
	}
	d := time.Duration(period) * epochDuration
	if d < constants.MinPollInterval {
		return constants.MinPollInterval
	}
	return d
}

// Run polls until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		if err := t.Poll(ctx); err != nil {
			t.log.Warnw("validator set poll failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll fetches the validator set once and updates the snapshot. The old
// snapshot is kept only long enough to compute the diff.
func (t *Tracker) Poll(ctx context.Context) error {
	head, err := t.gw.ChainHead(ctx)
	if err != nil {
		return err
	}
	next, err := t.gw.QueryValidatorSet(ctx, head)
	if err != nil {
		return err
	}

	t.mu.Lock()
	prev := t.last
	t.last = next
	diff := models.DiffValidatorSets(prev, next)
	count := len(next.Validators)
	wasDegraded := t.degraded
	t.degraded = uint64(count) < t.minValidators
	nowDegraded := t.degraded
	t.mu.Unlock()

	if !diff.Empty() {
		t.emit(Event{SubnetID: t.subnet, Kind: SetChanged, Diff: diff, Count: count})
	}
	switch {
	case nowDegraded && !wasDegraded:
		t.log.Warnw("subnet degraded", "validators", count, "min", t.minValidators)
		t.emit(Event{SubnetID: t.subnet, Kind: Degraded, Count: count})
	case !nowDegraded && wasDegraded:
		t.log.Infow("subnet recovered", "validators", count)
		t.emit(Event{SubnetID: t.subnet, Kind: Recovered, Count: count})
	}
	return nil
}

func (t *Tracker) emit(ev Event) {
	if t.events == nil {
		return
	}
	select {
	case t.events <- ev:
	default:
		t.log.Debugw("event channel full, dropping", "kind", ev.Kind)
	}
}

// Snapshot returns the current validator set, or nil before the first
// successful poll.
func (t *Tracker) Snapshot() *models.ValidatorSetSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// IsDegraded reports whether the live validator count is below the subnet's
// minimum. The scheduler must not submit new checkpoints while true.
func (t *Tracker) IsDegraded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.degraded
}
