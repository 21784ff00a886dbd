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
	"encoding/gob"
	"strconv"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/weave/graph/data"
	"github.com/krotik/weave/graph/util"
	"github.com/krotik/weave/storage"
)

func init() {

	// It is possible to store nested structures on nodes

	gob.Register(make(map[string]interface{}))
}

/*
NodeCount returns the node count for a given node kind.
*/
func (gm *Manager) NodeCount(kind string) uint64 {

	if val, ok := gm.gs.MainDB()[MainDBNodeCount+kind]; ok {
		count, err := strconv.ParseUint(val, 10, 64)
		errorutil.AssertOk(err)
		return count
	}

	return 0
}

/*
FetchNode fetches a single node from a partition of the graph.
*/
func (gm *Manager) FetchNode(part string, key string, kind string) (data.Node, error) {
	return gm.FetchNodePart(part, key, kind, nil)
}

/*
FetchNodePart fetches part of a single node from a partition of the graph.
*/
func (gm *Manager) FetchNodePart(part string, key string, kind string,
	attrs []string) (data.Node, error) {

	// Get the storage manager which stores the node

	sm, err := gm.getNodeStorage(part, kind, false)
	if err != nil || sm == nil {
		return nil, err
	}

	// Take reader lock

	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	// Read the node from the datastore

	return gm.readNode(key, kind, attrs, sm)
}

/*
readNode reads a given node from the datastore.
*/
func (gm *Manager) readNode(key string, kind string, attrs []string,
	sm storage.Manager) (data.Node, error) {

	// Check if the node exists

	attrMapObj, err := sm.Get(PrefixNodeAttrs + key)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	} else if attrMapObj == nil {
		return nil, nil
	}

	attrMap := attrMapObj.(map[string]interface{})

	node := data.NewGraphNode()

	if len(attrs) == 0 {

		// Lookup all attributes

		for attr, val := range attrMap {
			node.SetAttr(attr, val)
		}

	} else {

		// Lookup only the given attributes

		for _, attr := range attrs {
			if val, ok := attrMap[attr]; ok {
				node.SetAttr(attr, val)
			}
		}
	}

	// Set key and kind attributes

	node.SetAttr(data.NodeKey, key)
	node.SetAttr(data.NodeKind, kind)

	return node, nil
}

/*
StoreNode stores a single node in a partition of the graph. This function will
overwrite any existing node.
*/
func (gm *Manager) StoreNode(part string, node data.Node) error {
	trans := newInternalGraphTrans(gm)
	trans.subtrans = true

	err := gm.gr.graphEvent(trans, EventNodeStore, part, node)

	if err != nil {
		if err == ErrEventHandled {
			err = nil
		}
		return err
	}

	if err = trans.Commit(); err == nil {
		err = gm.storeOrUpdateNode(part, node, false)
	}

	return err
}

/*
UpdateNode updates a single node in a partition of the graph. This function will
only update the given values of the node.
*/
func (gm *Manager) UpdateNode(part string, node data.Node) error {
	trans := newInternalGraphTrans(gm)
	trans.subtrans = true

	err := gm.gr.graphEvent(trans, EventNodeUpdate, part, node)

	if err != nil {
		if err == ErrEventHandled {
			err = nil
		}
		return err
	}

	if err = trans.Commit(); err == nil {
		err = gm.storeOrUpdateNode(part, node, true)
	}

	return err
}

/*
storeOrUpdateNode stores or updates a single node in a partition of the graph.
*/
func (gm *Manager) storeOrUpdateNode(part string, node data.Node, onlyUpdate bool) error {

	// Check if the node can be stored

	if err := gm.checkNode(node); err != nil {
		return err
	}

	// Get the storage manager which stores the node

	sm, err := gm.getNodeStorage(part, node.Kind(), true)
	if err != nil || sm == nil {
		return err
	}

	// Take writer lock

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	// Write the node to the datastore

	oldnode, err := gm.writeNode(node, onlyUpdate, sm, nodeAttributeFilter)
	if err != nil {
		return err
	}

	// Increase node count if the node was inserted

	if oldnode == nil {
		currentCount := gm.NodeCount(node.Kind())
		if err := gm.writeNodeCount(node.Kind(), currentCount+1, true); err != nil {
			return err
		}
	}

	defer func() {

		// Flush changes

		gm.gs.FlushMain()

		gm.flushNodeStorage(part, node.Kind())
	}()

	// Execute rules

	trans := newInternalGraphTrans(gm)
	trans.subtrans = true

	var event int
	if oldnode == nil {
		event = EventNodeCreated
	} else {
		event = EventNodeUpdated
	}

	if err := gm.gr.graphEvent(trans, event, part, node, oldnode); err != nil && err != ErrEventHandled {
		return err
	} else if err := trans.Commit(); err != nil {
		return err
	}

	return nil
}

/*
writeNode writes a given node in full or part to the datastore. It is assumed
that the caller holds the writer lock before calling the function and that,
after the function returns, the changes are flushed to the storage. Returns
the old node if an update occurred. An attribute filter can be specified to
skip specific attributes.
*/
func (gm *Manager) writeNode(node data.Node, onlyUpdate bool, sm storage.Manager,
	attFilter func(attr string) bool) (data.Node, error) {

	keyAttrs := PrefixNodeAttrs + node.Key()

	// Lookup the existing attribute map

	oldAttrMapObj, err := sm.Get(keyAttrs)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	var oldnode data.Node
	var attrMap map[string]interface{}

	if oldAttrMapObj != nil {
		oldAttrMap := oldAttrMapObj.(map[string]interface{})

		// Build up the old node which is returned

		oldnode = data.NewGraphNode()
		for attr, val := range oldAttrMap {
			oldnode.SetAttr(attr, val)
		}

		oldnode.SetAttr(data.NodeKey, node.Key())
		oldnode.SetAttr(data.NodeKind, node.Kind())

		if onlyUpdate {

			// An update keeps all attributes which are not in the given node

			attrMap = make(map[string]interface{}, len(oldAttrMap))
			for attr, val := range oldAttrMap {
				attrMap[attr] = val
			}
		}
	}

	if attrMap == nil {
		attrMap = make(map[string]interface{})
	}

	// Store the node attributes

	for attr, val := range node.Data() {

		// Ignore filtered attributes

		if attFilter(attr) {
			continue
		}

		attrMap[attr] = val
	}

	if err := sm.Put(keyAttrs, attrMap); err != nil {
		return nil, &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	return oldnode, nil
}

/*
RemoveNode removes a single node from a partition of the graph.
*/
func (gm *Manager) RemoveNode(part string, key string, kind string) (data.Node, error) {
	var err error

	trans := newInternalGraphTrans(gm)
	trans.subtrans = true

	if err = gm.gr.graphEvent(trans, EventNodeDelete, part, key, kind); err != nil {
		if err == ErrEventHandled {
			err = nil
		}
		return nil, err
	}

	err = trans.Commit()

	if err == nil {

		// Get the storage manager which stores the node

		sm, err := gm.getNodeStorage(part, kind, false)
		if err != nil || sm == nil {
			return nil, err
		}

		// Take writer lock

		gm.mutex.Lock()
		defer gm.mutex.Unlock()

		// Delete the node from the datastore

		node, err := gm.deleteNode(key, kind, sm)
		if err != nil {
			return node, err
		}

		if node != nil {

			// Decrease the node count

			currentCount := gm.NodeCount(kind)
			if err := gm.writeNodeCount(kind, currentCount-1, true); err != nil {
				return node, err
			}

			defer func() {

				// Flush changes

				gm.gs.FlushMain()

				gm.flushNodeStorage(part, kind)
			}()

			// Execute rules

			trans := newInternalGraphTrans(gm)
			trans.subtrans = true

			if err := gm.gr.graphEvent(trans, EventNodeDeleted, part, node); err != nil && err != ErrEventHandled {
				return node, err
			} else if err := trans.Commit(); err != nil {
				return node, err
			}

			return node, nil
		}
	}

	return nil, err
}

/*
deleteNode deletes a given node from the datastore. It is assumed that the
caller holds the writer lock before calling the function and that, after the
function returns, the changes are flushed to the storage. Edge related entries
of the node are left alone so the edges can still be traversed and removed by
graph rules. Returns the deleted node.
*/
func (gm *Manager) deleteNode(key string, kind string, sm storage.Manager) (data.Node, error) {

	keyAttrs := PrefixNodeAttrs + key

	// Remove the attribute map entry

	attrMapObj, err := sm.Get(keyAttrs)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	} else if attrMapObj == nil {
		return nil, nil
	}

	if err := sm.Remove(keyAttrs); err != nil {
		return nil, &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	// Create the node object which is returned

	node := data.NewGraphNode()

	node.SetAttr(data.NodeKey, key)
	node.SetAttr(data.NodeKind, kind)

	for attr, val := range attrMapObj.(map[string]interface{}) {
		node.SetAttr(attr, val)
	}

	return node, nil
}

/*
Default filter function to filter out system node attributes.
*/
func nodeAttributeFilter(attr string) bool {
	return attr == data.NodeKey || attr == data.NodeKind
}
