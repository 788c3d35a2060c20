// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package models

import (
	"fmt"
	"strings"
)

// SubnetID addresses a subnet by the path of actor addresses from the root,
// e.g. /root/t01001/t01002. The root network itself is /root.
type SubnetID string

const (
	RootSubnetID = SubnetID("/root")

	separator = "/"
)

// NewSubnetID derives the id of a child subnet from its parent id and the
// child's actor address.
func NewSubnetID(parent SubnetID, actor string) SubnetID {
	return SubnetID(string(parent) + separator + actor)
}

func ParseSubnetID(raw string) (SubnetID, error) {
	id := SubnetID(raw)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

func (id SubnetID) String() string {
	return string(id)
}

func (id SubnetID) IsRoot() bool {
	return id == RootSubnetID
}

// Parent returns the id one path segment up, or false for the root.
func (id SubnetID) Parent() (SubnetID, bool) {
	if id.IsRoot() {
		return "", false
	}
	idx := strings.LastIndex(string(id), separator)
	if idx <= 0 {
		return "", false
	}
	return SubnetID(string(id)[:idx]), true
}

// Actor returns the last path segment, the subnet's own actor address.
func (id SubnetID) Actor() string {
	idx := strings.LastIndex(string(id), separator)
	if idx < 0 {
		return string(id)
	}
	return string(id)[idx+1:]
}

// IsChildOf reports whether id is exactly one segment below parent.
func (id SubnetID) IsChildOf(parent SubnetID) bool {
	p, ok := id.Parent()
	return ok && p == parent
}

func (id SubnetID) Validate() error {
	s := string(id)
	if !strings.HasPrefix(s, string(RootSubnetID)) {
		return fmt.Errorf("subnet id %q must descend from %s", s, RootSubnetID)
	}
	if strings.HasSuffix(s, separator) {
		return fmt.Errorf("subnet id %q has a trailing separator", s)
	}
	rest := strings.TrimPrefix(s, string(RootSubnetID))
	if rest == "" {
		return nil
	}
	if !strings.HasPrefix(rest, separator) {
		return fmt.Errorf("subnet id %q must descend from %s", s, RootSubnetID)
	}
	for _, seg := range strings.Split(rest[1:], separator) {
		if seg == "" {
			return fmt.Errorf("subnet id %q has an empty path segment", s)
		}
	}
	return nil
}
