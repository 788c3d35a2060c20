// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package models

import (
	"encoding/binary"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Tipset is a reference to a finalized point of a subnet's chain.
type Tipset struct {
	Key   common.Hash `json:"key"`
	Epoch int64       `json:"epoch"`
}

// CrossMsg is a message crossing a subnet boundary, relayed inside a
// checkpoint. Nonce is assigned by the originating gateway and orders
// messages on an edge.
type CrossMsg struct {
	From   SubnetID `json:"from"`
	To     SubnetID `json:"to"`
	Nonce  uint64   `json:"nonce"`
	Value  *big.Int `json:"value"`
	Method uint64   `json:"method"`
	Params []byte   `json:"params,omitempty"`
}

// EpochRange is the half-open [From, To) window of epochs a checkpoint
// covers.
type EpochRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Signature is one validator's signature over a checkpoint digest.
type Signature struct {
	Validator string `json:"validator"`
	Weight    uint64 `json:"weight"`
	Sig       []byte `json:"sig"`
}

// CheckpointRecord is a quorum-signed summary of one checkpoint window for
// a parent/child edge. Once confirmed by the destination it is immutable.
type CheckpointRecord struct {
	SubnetID   SubnetID    `json:"subnet_id"`
	Nonce      uint64      `json:"nonce"`
	Epochs     EpochRange  `json:"epochs"`
	Digest     common.Hash `json:"cross_message_digest"`
	CrossMsgs  []CrossMsg  `json:"cross_msgs,omitempty"`
	Signatures []Signature `json:"signatures,omitempty"`

	// ValidatorChanges rides along on top-down records only. Keeping the
	// diff on the record means a replay after a restart or nonce repair
	// carries the same changes as the original submission.
	ValidatorChanges ValidatorDiff `json:"validator_changes"`
}

// SignedWeight is the total voting power behind the record's signatures.
func (r *CheckpointRecord) SignedWeight() uint64 {
	var total uint64
	for _, s := range r.Signatures {
		total += s.Weight
	}
	return total
}

// DigestCrossMsgs computes the deterministic digest of a checkpoint's
// message payload. Messages are ordered by (from, to, nonce) before
// hashing so the digest is independent of gathering order.
func DigestCrossMsgs(msgs []CrossMsg) common.Hash {
	sorted := make([]CrossMsg, len(msgs))
	copy(sorted, msgs)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Nonce < b.Nonce
	})

	var buf []byte
	var scratch [8]byte
	for _, m := range sorted {
		buf = append(buf, []byte(m.From)...)
		buf = append(buf, 0)
		buf = append(buf, []byte(m.To)...)
		buf = append(buf, 0)
		binary.BigEndian.PutUint64(scratch[:], m.Nonce)
		buf = append(buf, scratch[:]...)
		if m.Value != nil {
			buf = append(buf, m.Value.Bytes()...)
		}
		binary.BigEndian.PutUint64(scratch[:], m.Method)
		buf = append(buf, scratch[:]...)
		buf = append(buf, m.Params...)
		buf = append(buf, 0)
	}
	return crypto.Keccak256Hash(buf)
}
