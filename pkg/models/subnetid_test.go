// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSubnetID(t *testing.T) {
	type test struct {
		raw     string
		wantErr bool
	}
	tests := []test{
		{raw: "/root", wantErr: false},
		{raw: "/root/t01001", wantErr: false},
		{raw: "/root/t01001/t01002", wantErr: false},
		{raw: "", wantErr: true},
		{raw: "root/t01001", wantErr: true},
		{raw: "/root/", wantErr: true},
		{raw: "/root//t01002", wantErr: true},
		{raw: "/other/t01001", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			require := require.New(t)
			id, err := ParseSubnetID(tt.raw)
			if tt.wantErr {
				require.Error(err)
				return
			}
			require.NoError(err)
			require.Equal(tt.raw, id.String())
		})
	}
}

func TestSubnetIDParent(t *testing.T) {
	require := require.New(t)

	_, ok := RootSubnetID.Parent()
	require.False(ok)

	child := NewSubnetID(RootSubnetID, "t01001")
	require.Equal(SubnetID("/root/t01001"), child)

	parent, ok := child.Parent()
	require.True(ok)
	require.Equal(RootSubnetID, parent)

	grandchild := NewSubnetID(child, "t01002")
	require.Equal("t01002", grandchild.Actor())
	require.True(grandchild.IsChildOf(child))
	require.False(grandchild.IsChildOf(RootSubnetID))
}

func TestSubnetIDActorOfRoot(t *testing.T) {
	require := require.New(t)
	require.Equal("root", RootSubnetID.Actor())
	require.True(RootSubnetID.IsRoot())
	require.False(SubnetID("/root/t01001").IsRoot())
}
