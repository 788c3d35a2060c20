// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
)

func testPolicy() retryPolicy {
	return retryPolicy{
		maxAttempts:    3,
		initialBackoff: time.Millisecond,
		maxBackoff:     2 * time.Millisecond,
		callTimeout:    time.Second,
	}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	require := require.New(t)

	calls := 0
	err := testPolicy().do(context.Background(), zap.NewNop().Sugar(), "Filecoin.ChainHead", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(err)
	require.Equal(3, calls)
}

func TestRetryExhaustionIsUnreachable(t *testing.T) {
	require := require.New(t)

	calls := 0
	err := testPolicy().do(context.Background(), zap.NewNop().Sugar(), "Filecoin.ChainHead", func(context.Context) error {
		calls++
		return errors.New("connection refused")
	})
	require.ErrorIs(err, agenterr.ErrSubnetUnreachable)
	require.Equal(3, calls)
}

func TestRetryDoesNotRetryPermanentErrors(t *testing.T) {
	require := require.New(t)

	for _, permanent := range []error{
		agenterr.Authf("endpoint rejected credentials"),
		agenterr.NonceConflictf("checkpoint nonce 5 already confirmed"),
		agenterr.Configf("no such subnet"),
	} {
		calls := 0
		err := testPolicy().do(context.Background(), zap.NewNop().Sugar(), "Filecoin.IPCSubmitCheckpoint", func(context.Context) error {
			calls++
			return permanent
		})
		require.ErrorIs(err, permanent)
		require.Equal(1, calls)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := testPolicy().do(ctx, zap.NewNop().Sugar(), "Filecoin.ChainHead", func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	})
	require.ErrorIs(err, context.Canceled)
	require.Equal(1, calls)
}

func TestClassify(t *testing.T) {
	require := require.New(t)

	require.NoError(classify(nil))

	err := classify(gethrpc.HTTPError{StatusCode: 401, Status: "401 Unauthorized"})
	require.ErrorIs(err, agenterr.ErrAuth)
	require.False(agenterr.Transient(err))

	err = classify(gethrpc.HTTPError{StatusCode: 403, Status: "403 Forbidden"})
	require.ErrorIs(err, agenterr.ErrAuth)

	// server-side failures stay transient
	err = classify(gethrpc.HTTPError{StatusCode: 502, Status: "502 Bad Gateway"})
	require.NotErrorIs(err, agenterr.ErrAuth)
	require.True(agenterr.Transient(err))

	err = classify(errors.New("checkpoint with nonce 4 already committed"))
	require.ErrorIs(err, agenterr.ErrNonceConflict)
}
