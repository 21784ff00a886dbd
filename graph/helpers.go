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
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/krotik/common/stringutil"
	"github.com/krotik/weave/graph/data"
	"github.com/krotik/weave/graph/util"
	"github.com/krotik/weave/storage"
)

// Helper functions for GraphManager
// =================================

/*
checkPartitionName checks if a given partition name is valid.
*/
func (gm *Manager) checkPartitionName(part string) error {
	if !stringutil.IsAlphaNumeric(part) {
		return &util.GraphError{
			Type:   util.ErrInvalidData,
			Detail: fmt.Sprintf("Partition name %v is not alphanumeric - can only contain [a-zA-Z0-9_]", part),
		}
	}

	return nil
}

/*
checkNode checks if a given node can be written to the datastore.
*/
func (gm *Manager) checkNode(node data.Node) error {
	return gm.checkItemGeneral(node, "Node")
}

/*
checkItemGeneral checks the general properties of a given graph item.
*/
func (gm *Manager) checkItemGeneral(node data.Node, name string) error {
	if node.Key() == "" {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: name + " is missing a key value"}
	}

	if node.Kind() == "" {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: name + " is missing a kind value"}
	}

	if !stringutil.IsAlphaNumeric(node.Kind()) {
		return &util.GraphError{
			Type:   util.ErrInvalidData,
			Detail: fmt.Sprintf("%v kind %v is not alphanumeric - can only contain [a-zA-Z0-9_]", name, node.Kind()),
		}
	}

	for attr := range node.Data() {
		if attr == "" {
			return &util.GraphError{Type: util.ErrInvalidData, Detail: name + " contains empty string attribute name"}
		}
	}

	return nil
}

/*
checkEdge checks if a given edge can be written to the datastore.
*/
func (gm *Manager) checkEdge(edge data.Edge) error {
	if err := gm.checkItemGeneral(edge, "Edge"); err != nil {
		return err
	}

	checkEnd := func(end string, key string, kind string, role string) error {
		if key == "" {
			return &util.GraphError{Type: util.ErrInvalidData, Detail: "Edge is missing a key value for " + end}
		}

		if kind == "" {
			return &util.GraphError{Type: util.ErrInvalidData, Detail: "Edge is missing a kind value for " + end}
		}

		if role == "" {
			return &util.GraphError{Type: util.ErrInvalidData, Detail: "Edge is missing a role value for " + end}
		} else if !stringutil.IsAlphaNumeric(role) {
			return &util.GraphError{
				Type:   util.ErrInvalidData,
				Detail: fmt.Sprintf("Edge role %v is not alphanumeric - can only contain [a-zA-Z0-9_]", role),
			}
		}

		return nil
	}

	if err := checkEnd("end1", edge.End1Key(), edge.End1Kind(), edge.End1Role()); err != nil {
		return err
	}

	if _, ok := edge.Attr(data.EdgeEnd1Cascading).(bool); !ok {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: "Edge is missing a cascading value for end1"}
	}

	if err := checkEnd("end2", edge.End2Key(), edge.End2Kind(), edge.End2Role()); err != nil {
		return err
	}

	if _, ok := edge.Attr(data.EdgeEnd2Cascading).(bool); !ok {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: "Edge is missing a cascading value for end2"}
	}

	return nil
}

/*
writeNodeCount writes a new node count for a specific kind to the datastore.
*/
func (gm *Manager) writeNodeCount(kind string, count uint64, flush bool) error {
	gm.gs.MainDB()[MainDBNodeCount+kind] = strconv.FormatUint(count, 10)

	if flush {
		return gm.gs.FlushMain()
	}

	return nil
}

/*
writeEdgeCount writes a new edge count for a specific kind to the datastore.
*/
func (gm *Manager) writeEdgeCount(kind string, count uint64, flush bool) error {
	gm.gs.MainDB()[MainDBEdgeCount+kind] = strconv.FormatUint(count, 10)

	if flush {
		return gm.gs.FlushMain()
	}

	return nil
}

/*
getNodeStorage gets the storage manager which stores nodes of a given kind.
This function ensures that depending entries in other datastructures do exist.
*/
func (gm *Manager) getNodeStorage(part string, kind string, create bool) (storage.Manager, error) {

	gm.storageMutex.Lock()
	defer gm.storageMutex.Unlock()

	// Check if the partition name is valid

	if err := gm.checkPartitionName(part); err != nil {
		return nil, err
	}

	// Check if the node kind is valid

	if !stringutil.IsAlphaNumeric(kind) {
		return nil, &util.GraphError{
			Type:   util.ErrInvalidData,
			Detail: fmt.Sprintf("Node kind %v is not alphanumeric - can only contain [a-zA-Z0-9_]", kind),
		}
	}

	// Make sure all required lookup maps are there

	if gm.getMainDBMap(MainDBNodeKinds) == nil {
		gm.storeMainDBMap(MainDBNodeKinds, make(map[string]string))
	}

	if gm.getMainDBMap(MainDBParts) == nil {
		gm.storeMainDBMap(MainDBParts, make(map[string]string))
	}

	if gm.getMainDBMap(MainDBNodeAttrs+kind) == nil {
		gm.storeMainDBMap(MainDBNodeAttrs+kind, make(map[string]string))
	}

	if gm.getMainDBMap(MainDBNodeEdges+kind) == nil {
		gm.storeMainDBMap(MainDBNodeEdges+kind, make(map[string]string))
	}

	if _, ok := gm.gs.MainDB()[MainDBNodeCount+kind]; !ok {
		gm.gs.MainDB()[MainDBNodeCount+kind] = "0"
	}

	return gm.gs.StorageManager(part+kind+StorageSuffixNodes, create), nil
}

/*
getEdgeStorage gets the storage manager which stores edges of a given kind.
This function ensures that depending entries in other datastructures do exist.
*/
func (gm *Manager) getEdgeStorage(part string, kind string, create bool) (storage.Manager, error) {

	gm.storageMutex.Lock()
	defer gm.storageMutex.Unlock()

	// Check if the partition name is valid

	if err := gm.checkPartitionName(part); err != nil {
		return nil, err
	}

	// Check if the edge kind is valid

	if !stringutil.IsAlphaNumeric(kind) {
		return nil, &util.GraphError{
			Type:   util.ErrInvalidData,
			Detail: fmt.Sprintf("Edge kind %v is not alphanumeric - can only contain [a-zA-Z0-9_]", kind),
		}
	}

	// Make sure all required lookup maps are there

	if gm.getMainDBMap(MainDBEdgeKinds) == nil {
		gm.storeMainDBMap(MainDBEdgeKinds, make(map[string]string))
	}

	if gm.getMainDBMap(MainDBEdgeAttrs+kind) == nil {
		gm.storeMainDBMap(MainDBEdgeAttrs+kind, make(map[string]string))
	}

	if _, ok := gm.gs.MainDB()[MainDBEdgeCount+kind]; !ok {
		gm.gs.MainDB()[MainDBEdgeCount+kind] = "0"
	}

	return gm.gs.StorageManager(part+kind+StorageSuffixEdges, create), nil
}

/*
flushNodeStorage flushes a node storage.
*/
func (gm *Manager) flushNodeStorage(part string, kind string) error {
	if sm := gm.gs.StorageManager(part+kind+StorageSuffixNodes, false); sm != nil {
		if err := sm.Flush(); err != nil {
			return &util.GraphError{Type: util.ErrFlushing, Detail: err.Error()}
		}
	}
	return nil
}

/*
flushEdgeStorage flushes an edge storage.
*/
func (gm *Manager) flushEdgeStorage(part string, kind string) error {
	if sm := gm.gs.StorageManager(part+kind+StorageSuffixEdges, false); sm != nil {
		if err := sm.Flush(); err != nil {
			return &util.GraphError{Type: util.ErrFlushing, Detail: err.Error()}
		}
	}
	return nil
}

/*
rollbackNodeStorage rollbacks a node storage.
*/
func (gm *Manager) rollbackNodeStorage(part string, kind string) error {
	if sm := gm.gs.StorageManager(part+kind+StorageSuffixNodes, false); sm != nil {
		if err := sm.Rollback(); err != nil {
			return &util.GraphError{Type: util.ErrRollback, Detail: err.Error()}
		}
	}
	return nil
}

/*
rollbackEdgeStorage rollbacks an edge storage.
*/
func (gm *Manager) rollbackEdgeStorage(part string, kind string) error {
	if sm := gm.gs.StorageManager(part+kind+StorageSuffixEdges, false); sm != nil {
		if err := sm.Rollback(); err != nil {
			return &util.GraphError{Type: util.ErrRollback, Detail: err.Error()}
		}
	}
	return nil
}

/*
getMainDBMap gets a map from the main database.
*/
func (gm *Manager) getMainDBMap(key string) map[string]string {

	// First try the cache

	mapval, ok := gm.mapCache[key]
	if ok {
		return mapval
	}

	// Lookup map and decode it

	val, ok := gm.gs.MainDB()[key]
	if ok {
		mapval = stringToMap(val)
		gm.mapCache[key] = mapval
	}

	return mapval
}

/*
storeMainDBMap stores a map in the main database. The map is stored as a gob
byte slice. Once it has been decoded it is cached for read operations.
*/
func (gm *Manager) storeMainDBMap(key string, mapval map[string]string) {
	gm.mapCache[key] = mapval
	gm.gs.MainDB()[key] = mapToString(mapval)
}

/*
getMainDBList returns the keys of a stored main database map as a sorted list.
*/
func (gm *Manager) getMainDBList(key string) []string {
	mapval := gm.getMainDBMap(key)

	if mapval == nil {
		return nil
	}

	ret := make([]string, 0, len(mapval))
	for k := range mapval {
		ret = append(ret, k)
	}

	sort.StringSlice(ret).Sort()

	return ret
}

// Static helper functions
// =======================

/*
IsFullSpec is a function to determine if a given spec is a fully specified spec
(i.e. all spec components are specified)
*/
func IsFullSpec(spec string) bool {
	sspec := strings.Split(spec, ":")

	if len(sspec) != 4 || sspec[0] == "" || sspec[1] == "" || sspec[2] == "" || sspec[3] == "" {
		return false
	}

	return true
}

/*
mapToString turns a map of strings into a single string.
*/
func mapToString(stringmap map[string]string) string {
	bb := &bytes.Buffer{}

	gob.NewEncoder(bb).Encode(stringmap)

	return string(bb.Bytes())
}

/*
stringToMap turns a string into a map of strings.
*/
func stringToMap(mapString string) map[string]string {
	var stringmap map[string]string

	if err := gob.NewDecoder(bytes.NewBufferString(mapString)).Decode(&stringmap); err != nil {
		panic(fmt.Sprint("Cannot decode:", mapString, err))
	}

	return stringmap
}
