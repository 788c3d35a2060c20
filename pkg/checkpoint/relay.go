// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/registry"
	"github.com/protofire/ipc-agent/pkg/rpc"
	"github.com/protofire/ipc-agent/pkg/tracker"
)

// TopDownSource supplies the finalized validator-set changes a top-down
// checkpoint must propagate to the child. Implemented by the lifecycle
// manager, which records joins and leaves as they are executed.
type TopDownSource interface {
	PendingValidatorChanges(child models.SubnetID) models.ValidatorDiff
}

// Relay is the scheduling unit for one parent/child edge. It drives the
// bottom-up and top-down exchanges independently of every other edge: a
// slow subnet here never delays another relay.
type Relay struct {
	log       *zap.SugaredLogger
	edge      registry.Edge
	parent    rpc.Gateway
	child     rpc.Gateway
	tracker   *tracker.Tracker
	collector QuorumCollector
	params    models.SubnetParams
	store     *Store
	topdown   TopDownSource

	pollInterval  time.Duration
	submitTimeout time.Duration

	// bottom-up state
	buLast      uint64 // last nonce confirmed by the parent
	buNextEpoch int64  // parent epoch the next bottom-up checkpoint is due
	windowStart int64  // epoch the pending message window opened at
	window      []models.CrossMsg

	// top-down state
	tdLast      uint64
	tdNextEpoch int64
	tdWindow    int64  // epoch the current top-down window opened at
	tdMsgNonce  uint64 // next parent cross-msg nonce to fetch

	// mu serializes ticks with the externally driven Settle, Resume and
	// Paused calls; relay state is otherwise owned by the run goroutine.
	mu       sync.Mutex
	synced   bool
	paused   bool
	pauseErr error
}

type RelayOpts struct {
	Edge          registry.Edge
	Parent        rpc.Gateway
	Child         rpc.Gateway
	Tracker       *tracker.Tracker
	Collector     QuorumCollector
	Params        models.SubnetParams
	Store         *Store
	TopDown       TopDownSource
	PollInterval  time.Duration
	SubmitTimeout time.Duration
}

func NewRelay(log *zap.SugaredLogger, opts RelayOpts) *Relay {
	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.DefaultPollInterval
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = constants.RPCRequestTimeout
	}
	return &Relay{
		log:           log.Named("relay").With("child", opts.Edge.Child),
		edge:          opts.Edge,
		parent:        opts.Parent,
		child:         opts.Child,
		tracker:       opts.Tracker,
		collector:     opts.Collector,
		params:        opts.Params,
		store:         opts.Store,
		topdown:       opts.TopDown,
		pollInterval:  opts.PollInterval,
		submitTimeout: opts.SubmitTimeout,
		buNextEpoch:   opts.Params.BottomUpCheckPeriod,
		tdNextEpoch:   opts.Params.TopDownCheckPeriod,
	}
}

// Run ticks until ctx is cancelled. An in-flight submission is drained to
// completion or explicit failure before Run returns: ticks run to the end,
// and submissions use their own timeout context.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		r.Tick(ctx)
	}
}

// Tick performs one scheduling step. Exposed for tests and for the final
// settling checkpoint on kill.
func (r *Relay) Tick(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return
	}
	if !r.synced {
		if err := r.syncNonces(ctx); err != nil {
			r.log.Warnw("nonce sync failed, will retry", "err", err)
			return
		}
	}
	head, err := r.parent.ChainHead(ctx)
	if err != nil {
		r.log.Warnw("parent head unavailable", "err", err)
		return
	}
	if head.Epoch >= r.buNextEpoch {
		if err := r.bottomUp(ctx, head.Epoch, false); err != nil {
			r.fail("bottom-up", err)
		}
	}
	if head.Epoch >= r.tdNextEpoch {
		if err := r.topDown(ctx, head.Epoch); err != nil {
			r.fail("top-down", err)
		}
	}
}

// fail pauses the edge on structural errors; transient ones are just
// retried on the next tick.
func (r *Relay) fail(flow string, err error) {
	if agenterr.Transient(err) || errors.Is(err, agenterr.ErrQuorumNotReached) {
		r.log.Warnw("relay step failed, retrying next tick", "flow", flow, "err", err)
		return
	}
	r.paused = true
	r.pauseErr = err
	r.log.Errorw("edge paused pending operator action", "flow", flow, "err", err)
}

// Paused reports whether submissions on this edge are suspended, and why.
func (r *Relay) Paused() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused, r.pauseErr
}

// Resume clears a paused edge and re-syncs sequencing state from the
// destination's confirmed nonces, never from unverified local history.
func (r *Relay) Resume(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
	r.pauseErr = nil
	r.synced = false
	return r.syncNonces(ctx)
}

// syncNonces seeds both flows from the destinations' last confirmed nonces
// and replays any local pending records left over from a previous run.
func (r *Relay) syncNonces(ctx context.Context) error {
	confirmed, err := r.parent.LastConfirmedNonce(ctx, r.edge.Child)
	if err != nil {
		return err
	}
	r.store.DropPendingThrough(r.edge.Child, BottomUp, confirmed)
	for _, p := range r.store.Pending(r.edge.Child, BottomUp) {
		if p.Nonce != confirmed+1 {
			break
		}
		if err := r.parent.SubmitCheckpoint(ctx, p); err != nil {
			return err
		}
		if err := r.store.Confirm(r.edge.Child, BottomUp, p.Nonce); err != nil {
			return err
		}
		confirmed = p.Nonce
		r.log.Infow("replayed pending checkpoint", "nonce", p.Nonce)
	}
	r.buLast = confirmed

	tdConfirmed, err := r.child.LastConfirmedNonce(ctx, r.edge.Child)
	if err != nil {
		return err
	}
	r.store.DropPendingThrough(r.edge.Child, TopDown, tdConfirmed)
	r.tdLast = tdConfirmed
	r.synced = true
	return nil
}

// bottomUp gathers the pending cross-message window, collects a quorum and
// submits one checkpoint to the parent. On a failed quorum the window is
// kept and extended into the next tick; no message is ever dropped.
func (r *Relay) bottomUp(ctx context.Context, head int64, force bool) error {
	if !force && r.tracker.IsDegraded() {
		r.log.Infow("subnet degraded, suspending checkpoint submission")
		return nil
	}
	msgs, err := r.child.CheckpointTemplate(ctx, r.windowStart)
	if err != nil {
		return err
	}
	r.window = mergeWindow(r.window, msgs)

	set := r.tracker.Snapshot()
	if set == nil {
		return fmt.Errorf("validator set for %s not yet observed", r.edge.Child)
	}

	rec := &models.CheckpointRecord{
		SubnetID:  r.edge.Child,
		Nonce:     r.buLast + 1,
		Epochs:    models.EpochRange{From: r.windowStart, To: head},
		Digest:    models.DigestCrossMsgs(r.window),
		CrossMsgs: r.window,
	}
	sigs, err := r.collector.Collect(ctx, rec, set, r.params.FinalityThreshold)
	if err != nil {
		if errors.Is(err, agenterr.ErrQuorumNotReached) {
			r.log.Infow("quorum not reached, extending window",
				"nonce", rec.Nonce, "pending_msgs", len(r.window))
			return nil
		}
		return err
	}
	rec.Signatures = sigs

	r.store.AddPending(r.edge.Child, BottomUp, rec)
	if err := r.submit(r.parent, BottomUp, rec); err != nil {
		return err
	}
	if err := r.store.Confirm(r.edge.Child, BottomUp, rec.Nonce); err != nil {
		return err
	}
	r.buLast = rec.Nonce
	r.window = nil
	r.windowStart = head
	r.buNextEpoch = nextDue(head, r.params.BottomUpCheckPeriod)
	r.log.Infow("bottom-up checkpoint confirmed",
		"nonce", rec.Nonce, "epochs", rec.Epochs, "msgs", len(rec.CrossMsgs))
	return nil
}

// topDown propagates finalized validator changes and parent-side cross
// messages down to the child, under the same nonce discipline.
func (r *Relay) topDown(ctx context.Context, head int64) error {
	msgs, err := r.parent.TopDownMessages(ctx, r.edge.Child, r.tdMsgNonce)
	if err != nil {
		return err
	}
	changes := models.ValidatorDiff{}
	if r.topdown != nil {
		changes = r.topdown.PendingValidatorChanges(r.edge.Child)
	}
	nonce := r.tdLast + 1
	// a pending record at this nonce holds the payload of an earlier failed
	// submission; its messages and validator changes fold into this attempt
	for _, p := range r.store.Pending(r.edge.Child, TopDown) {
		if p.Nonce == nonce {
			msgs = mergeWindow(p.CrossMsgs, msgs)
			changes = mergeDiffs(p.ValidatorChanges, changes)
			break
		}
	}
	if len(msgs) == 0 && changes.Empty() {
		r.tdNextEpoch = nextDue(head, r.params.TopDownCheckPeriod)
		return nil
	}

	rec := &models.CheckpointRecord{
		SubnetID:         r.edge.Child,
		Nonce:            nonce,
		Epochs:           models.EpochRange{From: r.tdWindow, To: head},
		Digest:           models.DigestCrossMsgs(msgs),
		CrossMsgs:        msgs,
		ValidatorChanges: changes,
	}
	r.store.AddPending(r.edge.Child, TopDown, rec)
	if err := r.submit(r.child, TopDown, rec); err != nil {
		return err
	}
	if err := r.store.Confirm(r.edge.Child, TopDown, rec.Nonce); err != nil {
		return err
	}
	r.tdLast = rec.Nonce
	for _, m := range msgs {
		if m.Nonce >= r.tdMsgNonce {
			r.tdMsgNonce = m.Nonce + 1
		}
	}
	r.tdWindow = head
	r.tdNextEpoch = nextDue(head, r.params.TopDownCheckPeriod)
	r.log.Infow("top-down checkpoint confirmed",
		"nonce", rec.Nonce, "msgs", len(msgs),
		"validator_changes", !changes.Empty())
	return nil
}

// Settle runs one final bottom-up checkpoint regardless of schedule,
// settling outstanding cross-messages before a subnet is killed. The
// degraded gate is bypassed: by kill time validators have already exited.
func (r *Relay) Settle(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	head, err := r.parent.ChainHead(ctx)
	if err != nil {
		return err
	}
	return r.bottomUp(ctx, head.Epoch, true)
}

// submit pushes rec to dst, repairing nonce gaps when the destination
// rejects the sequence: fetch the destination's confirmed nonce, replay
// local pending records in ascending order, then retry. Submissions get a
// detached timeout context so a shutdown drains rather than severs them.
func (r *Relay) submit(dst rpc.Gateway, dir Direction, rec *models.CheckpointRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.submitTimeout)
	defer cancel()

	err := r.apply(ctx, dst, dir, rec)
	if err == nil {
		return nil
	}
	if !errors.Is(err, agenterr.ErrNonceConflict) {
		return err
	}

	confirmed, nerr := dst.LastConfirmedNonce(ctx, r.edge.Child)
	if nerr != nil {
		return nerr
	}
	r.store.DropPendingThrough(r.edge.Child, dir, confirmed)
	if rec.Nonce <= confirmed {
		// a duplicate from a previous run or another instance; already
		// applied exactly once at the destination
		r.log.Infow("checkpoint already confirmed at destination",
			"direction", dir, "nonce", rec.Nonce)
		return nil
	}
	for _, p := range r.store.PendingUpTo(r.edge.Child, dir, rec.Nonce) {
		if p.Nonce <= confirmed {
			continue
		}
		if p.Nonce != confirmed+1 {
			return agenterr.NonceConflictf("repair gap: pending %d, destination confirmed %d", p.Nonce, confirmed)
		}
		if err := r.apply(ctx, dst, dir, p); err != nil {
			return err
		}
		if err := r.store.Confirm(r.edge.Child, dir, p.Nonce); err != nil {
			return err
		}
		confirmed = p.Nonce
		r.log.Infow("replayed pending checkpoint during repair", "direction", dir, "nonce", p.Nonce)
	}
	if rec.Nonce != confirmed+1 {
		return agenterr.NonceConflictf("unrepairable gap: record %d, destination confirmed %d", rec.Nonce, confirmed)
	}
	return r.apply(ctx, dst, dir, rec)
}

func (r *Relay) apply(ctx context.Context, dst rpc.Gateway, dir Direction, rec *models.CheckpointRecord) error {
	if dir == TopDown {
		return dst.ApplyTopDown(ctx, rec, rec.ValidatorChanges)
	}
	return dst.SubmitCheckpoint(ctx, rec)
}

// mergeWindow extends the pending window with newly gathered messages,
// deduplicating on (from, to, nonce) so repeated gathering across failed
// quorum ticks never duplicates a message.
func mergeWindow(window, msgs []models.CrossMsg) []models.CrossMsg {
	type key struct {
		from, to models.SubnetID
		nonce    uint64
	}
	seen := make(map[key]struct{}, len(window))
	for _, m := range window {
		seen[key{m.From, m.To, m.Nonce}] = struct{}{}
	}
	for _, m := range msgs {
		k := key{m.From, m.To, m.Nonce}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		window = append(window, m)
	}
	return window
}

func mergeDiffs(a, b models.ValidatorDiff) models.ValidatorDiff {
	return models.ValidatorDiff{
		Added:      append(a.Added, b.Added...),
		Removed:    append(a.Removed, b.Removed...),
		Reweighted: append(a.Reweighted, b.Reweighted...),
	}
}

// nextDue is the first multiple of period strictly after head.
func nextDue(head, period int64) int64 {
	return (head/period + 1) * period
}
