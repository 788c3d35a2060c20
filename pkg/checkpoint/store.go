// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package checkpoint

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/models"
)

// Direction distinguishes the two relay flows on an edge.
type Direction int

const (
	BottomUp Direction = iota
	TopDown
)

func (d Direction) String() string {
	if d == TopDown {
		return "top-down"
	}
	return "bottom-up"
}

type streamKey struct {
	child models.SubnetID
	dir   Direction
}

type stream struct {
	pending   []*models.CheckpointRecord // ascending nonce, not yet confirmed
	confirmed []*models.CheckpointRecord // ascending nonce, immutable history
}

// Store holds per-edge checkpoint state: records built but not yet
// acknowledged by the destination, and the confirmed history. A relay unit
// owns its pending records until confirmation, after which they become
// immutable history.
type Store struct {
	mu      sync.RWMutex
	streams map[streamKey]*stream
}

func NewStore() *Store {
	return &Store{streams: make(map[streamKey]*stream)}
}

func (s *Store) get(child models.SubnetID, dir Direction) *stream {
	key := streamKey{child: child, dir: dir}
	st, ok := s.streams[key]
	if !ok {
		st = &stream{}
		s.streams[key] = st
	}
	return st
}

// lookup never creates, so it is safe under the read lock.
func (s *Store) lookup(child models.SubnetID, dir Direction) *stream {
	return s.streams[streamKey{child: child, dir: dir}]
}

// AddPending records an in-flight checkpoint. Replaces any pending record
// with the same nonce (a rebuilt window after a failed quorum).
func (s *Store) AddPending(child models.SubnetID, dir Direction, rec *models.CheckpointRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(child, dir)
	for i, p := range st.pending {
		if p.Nonce == rec.Nonce {
			st.pending[i] = rec
			return
		}
	}
	st.pending = append(st.pending, rec)
	slices.SortFunc(st.pending, func(a, b *models.CheckpointRecord) bool {
		return a.Nonce < b.Nonce
	})
}

// PendingUpTo returns pending records with nonce < below, ascending. These
// are the records a repair replays.
func (s *Store) PendingUpTo(child models.SubnetID, dir Direction, below uint64) []*models.CheckpointRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.lookup(child, dir)
	if st == nil {
		return nil
	}
	var out []*models.CheckpointRecord
	for _, p := range st.pending {
		if p.Nonce < below {
			out = append(out, p)
		}
	}
	return out
}

// Pending returns all pending records, ascending.
func (s *Store) Pending(child models.SubnetID, dir Direction) []*models.CheckpointRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.lookup(child, dir)
	if st == nil {
		return nil
	}
	return slices.Clone(st.pending)
}

// Confirm moves the pending record with the given nonce into history.
// Confirmations must arrive in sequence; re-confirming a nonce already in
// history is a no-op (the destination deduplicated the submission).
func (s *Store) Confirm(child models.SubnetID, dir Direction, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(child, dir)
	if n := len(st.confirmed); n > 0 {
		last := st.confirmed[n-1].Nonce
		if nonce <= last {
			return nil
		}
		if nonce != last+1 {
			return agenterr.NonceConflictf("confirm %d after %d for %s", nonce, last, child)
		}
	}
	for i, p := range st.pending {
		if p.Nonce == nonce {
			st.confirmed = append(st.confirmed, p)
			st.pending = append(st.pending[:i], st.pending[i+1:]...)
			return nil
		}
	}
	return agenterr.NonceConflictf("no pending record with nonce %d for %s", nonce, child)
}

// DropPendingThrough discards pending records with nonce <= through; the
// destination already holds them (learned via LastConfirmedNonce). They are
// appended to history if they extend it in sequence.
func (s *Store) DropPendingThrough(child models.SubnetID, dir Direction, through uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(child, dir)
	kept := st.pending[:0]
	for _, p := range st.pending {
		if p.Nonce > through {
			kept = append(kept, p)
			continue
		}
		if n := len(st.confirmed); n == 0 || p.Nonce == st.confirmed[n-1].Nonce+1 {
			st.confirmed = append(st.confirmed, p)
		}
	}
	st.pending = kept
}

// LastConfirmedNonce returns the highest locally confirmed nonce and
// whether any record has been confirmed at all.
func (s *Store) LastConfirmedNonce(child models.SubnetID, dir Direction) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.lookup(child, dir)
	if st == nil || len(st.confirmed) == 0 {
		return 0, false
	}
	return st.confirmed[len(st.confirmed)-1].Nonce, true
}

// Confirmed returns the confirmed records for an edge whose epoch window
// overlaps [fromEpoch, toEpoch]. A zero toEpoch means no upper bound.
func (s *Store) Confirmed(child models.SubnetID, dir Direction, fromEpoch, toEpoch int64) []*models.CheckpointRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.lookup(child, dir)
	if st == nil {
		return nil
	}
	var out []*models.CheckpointRecord
	for _, r := range st.confirmed {
		if r.Epochs.To < fromEpoch {
			continue
		}
		if toEpoch > 0 && r.Epochs.From > toEpoch {
			continue
		}
		out = append(out, r)
	}
	return out
}
