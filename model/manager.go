/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package model

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/krotik/weave/graph"
	"github.com/krotik/weave/graph/data"
)

/*
metaNodeKey is the key of the meta node which holds entity layer counters.
*/
const metaNodeKey = "weave.meta"

/*
metaNodeKind is the kind of the meta node.
*/
const metaNodeKind = "weavemeta"

/*
attrIDCounter is the attribute of the meta node holding the storage
identifier sequence.
*/
const attrIDCounter = "idcounter"

/*
Manager is the main API of the entity layer. It wraps a graph manager with
a schema registry and a partition and materializes entities from graph
nodes.
*/
type Manager struct {
	gm       *graph.Manager // Graph manager of the backing graph
	registry *Registry      // Schema registry of this manager
	part     string         // Partition which holds the entities
	idMutex  *sync.Mutex    // Mutex to protect the storage id sequence
}

/*
NewManager returns a new entity manager instance.
*/
func NewManager(gm *graph.Manager, registry *Registry, part string) *Manager {
	return &Manager{gm, registry, part, &sync.Mutex{}}
}

/*
Name returns the name of this manager.
*/
func (m *Manager) Name() string {
	return fmt.Sprint("Model ", m.gm.Name(), " partition ", m.part)
}

/*
Registry returns the schema registry of this manager.
*/
func (m *Manager) Registry() *Registry {
	return m.registry
}

/*
GraphManager returns the graph manager underlying this manager.
*/
func (m *Manager) GraphManager() *graph.Manager {
	return m.gm
}

/*
Partition returns the partition which holds the entities of this manager.
*/
func (m *Manager) Partition() string {
	return m.part
}

/*
NewEntity creates a new uncommitted entity of a registered kind. If the
given key is empty a new unique key is generated.
*/
func (m *Manager) NewEntity(kind string, key string) (*Entity, error) {

	if !m.registry.KnownKind(kind) {
		return nil, &ModelError{ErrInvalidData, fmt.Sprintf("Unknown kind: %v", kind)}
	}

	if key == "" {
		key = uuid.New().String()
	}

	return newEntity(m, kind, key, true, -1), nil
}

/*
FetchEntity looks up a committed entity by key and kind. Returns an
ErrNotFound error if no such entity exists.
*/
func (m *Manager) FetchEntity(kind string, key string) (*Entity, error) {

	if !m.registry.KnownKind(kind) {
		return nil, &ModelError{ErrInvalidData, fmt.Sprintf("Unknown kind: %v", kind)}
	}

	node, err := m.gm.FetchNodePart(m.part, key, kind,
		[]string{data.NodeKey, data.NodeKind, AttrStorageID})
	if err != nil {
		return nil, err
	} else if node == nil {
		return nil, &ModelError{ErrNotFound, fmt.Sprintf("%v %v", kind, key)}
	}

	sid, _ := node.Attr(AttrStorageID).(int64)

	return newEntity(m, kind, key, false, sid), nil
}

/*
RemoveEntity removes a committed entity and all of its edges. Cascading
edges remove their dependent entities as well.
*/
func (m *Manager) RemoveEntity(sec Principal, e *Entity) error {

	if e.Dirty() {
		return &ModelError{ErrInvalidData, "Entity is not committed"}
	}

	if !m.DeleteAllowed(sec, e) {
		return &ModelError{ErrDenied,
			fmt.Sprintf("Cannot delete %v %v", e.Kind(), e.Key())}
	}

	node, err := m.gm.RemoveNode(m.part, e.Key(), e.Kind())
	if err == nil && node == nil {
		err = &ModelError{ErrNotFound, fmt.Sprintf("%v %v", e.Kind(), e.Key())}
	}

	return err
}

/*
nextStorageID draws the next value from the storage identifier sequence.
The sequence lives on a meta node in the manager's partition.
*/
func (m *Manager) nextStorageID() (int64, error) {
	m.idMutex.Lock()
	defer m.idMutex.Unlock()

	node, err := m.gm.FetchNodePart(m.part, metaNodeKey, metaNodeKind,
		[]string{attrIDCounter})
	if err != nil {
		return -1, err
	}

	var next int64

	if node != nil {
		if counter, ok := node.Attr(attrIDCounter).(int64); ok {
			next = counter + 1
		}
	}

	meta := data.NewGraphNode()
	meta.SetAttr(data.NodeKey, metaNodeKey)
	meta.SetAttr(data.NodeKind, metaNodeKind)
	meta.SetAttr(attrIDCounter, next)

	if err := m.gm.StoreNode(m.part, meta); err != nil {
		return -1, err
	}

	return next, nil
}
