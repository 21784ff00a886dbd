/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"sort"
	"strings"

	"github.com/krotik/weave/graph/util"
)

/*
NodeKeyIterator can be used to iterate node keys of a certain node kind.
*/
type NodeKeyIterator struct {
	gm        *Manager // GraphManager which created the iterator
	keys      []string // Keys which should be iterated
	pos       int      // Current iteration position
	LastError error    // Last encountered error
}

/*
NodeKeyIterator creates an iterator over the node keys of a certain kind.
*/
func (gm *Manager) NodeKeyIterator(part string, kind string) (*NodeKeyIterator, error) {

	// Get the storage manager which stores the nodes

	sm, err := gm.getNodeStorage(part, kind, false)
	if err != nil || sm == nil {
		return nil, err
	}

	// Take reader lock

	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	skeys, err := sm.Keys()
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	// Collect all node attribute entries - the keys are a snapshot of the
	// datastore at the time the iterator was created

	keys := make([]string, 0, len(skeys))

	for _, skey := range skeys {
		if strings.HasPrefix(skey, PrefixNodeAttrs) {
			keys = append(keys, skey[len(PrefixNodeAttrs):])
		}
	}

	sort.StringSlice(keys).Sort()

	return &NodeKeyIterator{gm, keys, 0, nil}, nil
}

/*
Next returns the next node key. Sets the LastError attribute if an error occurs.
*/
func (it *NodeKeyIterator) Next() string {

	if !it.HasNext() {
		return ""
	}

	k := it.keys[it.pos]
	it.pos++

	return k
}

/*
HasNext returns if there is a next node key.
*/
func (it *NodeKeyIterator) HasNext() bool {
	return it.pos < len(it.keys)
}

/*
Error returns the last encountered error.
*/
func (it *NodeKeyIterator) Error() error {
	return it.LastError
}
