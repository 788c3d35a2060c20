// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

// Package agenterr defines the agent's error taxonomy. Callers classify
// failures with errors.Is against the sentinels below; everything else is
// treated as unexpected.
package agenterr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig covers malformed, duplicate or orphaned subnet entries.
	ErrConfig = errors.New("invalid subnet configuration")
	// ErrSubnetUnreachable is raised once a call has exhausted its retries.
	// The client stays usable for future calls.
	ErrSubnetUnreachable = errors.New("subnet unreachable")
	// ErrAuth marks a rejected credential. Never retried.
	ErrAuth = errors.New("authentication rejected")
	// ErrQuorumNotReached means too few signatures were gathered before the
	// next tick. Not fatal: the pending window carries over.
	ErrQuorumNotReached = errors.New("checkpoint quorum not reached")
	// ErrNonceConflict means a submitted checkpoint was out of sequence and
	// the edge needs repair from the destination's confirmed nonce.
	ErrNonceConflict = errors.New("checkpoint nonce out of sequence")
	// ErrInsufficientCollateral rejects a join below the minimum stake.
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	// ErrLifecycleConflict rejects an operation invalid for the subnet's
	// current lifecycle state.
	ErrLifecycleConflict = errors.New("subnet lifecycle conflict")
)

func Configf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrConfig)...)
}

func Unreachablef(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrSubnetUnreachable)...)
}

func Authf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrAuth)...)
}

func NonceConflictf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNonceConflict)...)
}

func Lifecyclef(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrLifecycleConflict)...)
}

// Transient reports whether err is worth retrying at the RPC layer.
func Transient(err error) bool {
	return err != nil && !errors.Is(err, ErrAuth) && !errors.Is(err, ErrConfig) &&
		!errors.Is(err, ErrNonceConflict) && !errors.Is(err, ErrLifecycleConflict)
}
