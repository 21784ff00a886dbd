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
	"fmt"
	"strconv"
	"sync"

	"github.com/krotik/weave/graph/graphstorage"
)

/*
Manager is the main API to the graph substrate.
*/
type Manager struct {
	gs           graphstorage.Storage         // Graph storage of this graph manager
	gr           *graphRulesManager           // Manager for graph rules
	mapCache     map[string]map[string]string // Cache which caches maps stored in the main database
	mutex        *sync.RWMutex                // Mutex to protect atomic graph operations
	storageMutex *sync.Mutex                  // Mutex to protect storage manager creation
}

/*
NewGraphManager returns a new GraphManager instance.
*/
func NewGraphManager(gs graphstorage.Storage) *Manager {
	gm := createGraphManager(gs)

	gm.SetGraphRule(&SystemRuleDeleteNodeEdges{})
	gm.SetGraphRule(&SystemRuleUpdateNodeStats{})

	return gm
}

/*
createGraphManager creates a new GraphManager instance.
*/
func createGraphManager(gs graphstorage.Storage) *Manager {
	mdb := gs.MainDB()

	// Check version

	if version, ok := mdb[MainDBVersion]; !ok {
		mdb[MainDBVersion] = strconv.Itoa(VERSION)
		gs.FlushMain()
	} else if version != strconv.Itoa(VERSION) {
		panic(fmt.Sprintf("Graph storage was created with unsupported version: %v", version))
	}

	gm := &Manager{gs, nil, make(map[string]map[string]string),
		&sync.RWMutex{}, &sync.Mutex{}}

	gm.gr = &graphRulesManager{gm, make(map[string]Rule), make(map[int]map[string]Rule)}

	return gm
}

/*
Name returns the name of the underlying storage.
*/
func (gm *Manager) Name() string {
	return fmt.Sprint("Graph ", gm.gs.Name())
}

/*
SetGraphRule sets a GraphRule.
*/
func (gm *Manager) SetGraphRule(rule Rule) {
	gm.gr.SetGraphRule(rule)
}

/*
GraphRules returns a list of all available graph rules.
*/
func (gm *Manager) GraphRules() []string {
	return gm.gr.GraphRules()
}

/*
NodeKinds returns all possible node kinds.
*/
func (gm *Manager) NodeKinds() []string {
	return gm.getMainDBList(MainDBNodeKinds)
}

/*
EdgeKinds returns all possible edge kinds.
*/
func (gm *Manager) EdgeKinds() []string {
	return gm.getMainDBList(MainDBEdgeKinds)
}

/*
Partitions returns all used partitions.
*/
func (gm *Manager) Partitions() []string {
	return gm.getMainDBList(MainDBParts)
}

/*
NodeAttrs returns all possible node attributes for a given node kind.
*/
func (gm *Manager) NodeAttrs(kind string) []string {
	return gm.getMainDBList(MainDBNodeAttrs + kind)
}

/*
NodeEdges returns all possible edge specs for a given node kind.
*/
func (gm *Manager) NodeEdges(kind string) []string {
	return gm.getMainDBList(MainDBNodeEdges + kind)
}

/*
EdgeAttrs returns all possible edge attributes for a given edge kind.
*/
func (gm *Manager) EdgeAttrs(kind string) []string {
	return gm.getMainDBList(MainDBEdgeAttrs + kind)
}
