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
	"reflect"
	"time"

	"github.com/krotik/common/datautil"
	"github.com/krotik/common/timeutil"
	"github.com/krotik/weave/graph"
	"github.com/krotik/weave/graph/data"
	"github.com/krotik/weave/model/convert"
)

/*
Entity is a typed in-memory wrapper around a graph node. An uncommitted
(dirty) entity holds its properties in a local map and has no storage
identifier. Commit writes the entity to the graph, assigns a storage
identifier and switches all further property access to read and write
through the backing store. Entity instances are not safe for concurrent
use.
*/
type Entity struct {
	mgr       *Manager               // Manager which materialized this entity
	kind      string                 // Kind of this entity
	key       string                 // Key of this entity
	dirty     bool                   // Flag if the entity is uncommitted
	storageID int64                  // Storage identifier (-1 while dirty)
	local     map[string]interface{} // Local property map while dirty
	relCache  *datautil.MapCache     // Cache for relationship lookups
}

/*
newEntity creates a new Entity instance.
*/
func newEntity(mgr *Manager, kind string, key string, dirty bool, storageID int64) *Entity {
	return &Entity{mgr, kind, key, dirty, storageID,
		make(map[string]interface{}), datautil.NewMapCache(0, 0)}
}

/*
Key returns the key of this entity.
*/
func (e *Entity) Key() string {
	return e.key
}

/*
Kind returns the kind of this entity.
*/
func (e *Entity) Kind() string {
	return e.kind
}

/*
Dirty returns if this entity has not yet been committed.
*/
func (e *Entity) Dirty() bool {
	return e.dirty
}

/*
StorageID returns the storage identifier of this entity. Returns -1 while
the entity is dirty, a stable non-negative value once it is committed.
*/
func (e *Entity) StorageID() int64 {
	if e.dirty {
		return -1
	}

	return e.storageID
}

/*
String returns a string representation of this entity.
*/
func (e *Entity) String() string {
	state := "committed"
	if e.dirty {
		state = "dirty"
	}

	return fmt.Sprintf("Entity %v %v (%v)", e.kind, e.key, state)
}

/*
Commit writes a dirty entity to the graph and assigns its storage
identifier. The node is staged into the given transaction; if trans is nil
the entity commits in its own transaction. Committing a committed entity
is a no-op. When staging into an enclosing transaction the caller owns the
transaction outcome.
*/
func (e *Entity) Commit(trans graph.Trans) error {

	if !e.dirty {
		return nil
	}

	sid, err := e.mgr.nextStorageID()
	if err != nil {
		return err
	}

	now := timeutil.MakeTimestamp()

	node := data.NewGraphNode()
	node.SetAttr(data.NodeKey, e.key)
	node.SetAttr(data.NodeKind, e.kind)
	node.SetAttr(AttrStorageID, sid)
	node.SetAttr(AttrCreated, now)
	node.SetAttr(AttrModified, now)

	for k, v := range e.local {
		node.SetAttr(k, v)
	}

	if trans == nil {
		trans = graph.NewGraphTrans(e.mgr.gm)

		if err := trans.StoreNode(e.mgr.part, node); err != nil {
			return err
		}

		err = trans.Commit()

	} else {
		err = trans.StoreNode(e.mgr.part, node)
	}

	if err != nil {
		return err
	}

	e.dirty = false
	e.storageID = sid
	e.local = make(map[string]interface{})

	return nil
}

/*
SetProperty sets a property of this entity. The value is converted to its
stored representation if the property is registered. Writes which would
not change the stored value are skipped and leave the last modification
timestamp untouched. On a committed entity the write runs in its own
transaction.
*/
func (e *Entity) SetProperty(key string, val interface{}) error {

	if key == "" {
		log.Warning("Denied write with empty property key on ", e)
		return &ModelError{ErrDenied, "Property key must not be empty"}
	}

	if key == AttrModified {
		return &ModelError{ErrDenied, "Last modification timestamp cannot be written directly"}
	}

	stored := val

	if prop := e.mgr.registry.Property(e.kind, key); prop != nil {
		var err error

		if prop.ReadOnly {
			return &ModelError{ErrDenied,
				fmt.Sprintf("Property %v of kind %v is read-only", key, e.kind)}
		}

		if stored, err = prop.Converter.ForSetter(val); err != nil {
			return err
		}

		if prop.Indexed {
			log.Debug("Scheduling reindex of ", e.kind, " attribute ", key)
		}
	}

	// Equality short-circuit - stored representations may hold slices
	// or maps which must not be compared with ==

	cur, err := e.storedValue(key)
	if err != nil {
		return err
	} else if sameStoredValue(cur, stored) {
		return nil
	}

	if e.dirty {
		e.local[key] = stored
		return nil
	}

	node := data.NewGraphNode()
	node.SetAttr(data.NodeKey, e.key)
	node.SetAttr(data.NodeKind, e.kind)
	node.SetAttr(key, stored)
	node.SetAttr(AttrModified, timeutil.MakeTimestamp())

	trans := graph.NewGraphTrans(e.mgr.gm)

	if err := trans.UpdateNode(e.mgr.part, node); err != nil {
		return err
	}

	return trans.Commit()
}

/*
sameStoredValue compares two stored property representations. Values of
uncomparable types such as slices and maps are compared by deep equality.
*/
func sameStoredValue(cur interface{}, stored interface{}) bool {

	if cur == nil || stored == nil {
		return cur == stored
	}

	if reflect.TypeOf(cur).Comparable() && reflect.TypeOf(stored).Comparable() {
		return cur == stored
	}

	return reflect.DeepEqual(cur, stored)
}

/*
GetProperty reads a property of this entity. The stored value is converted
to its domain representation if the property is registered. On a committed
entity the value is read through from the backing store.
*/
func (e *Entity) GetProperty(key string) (interface{}, error) {

	stored, err := e.storedValue(key)
	if err != nil {
		return nil, err
	}

	if prop := e.mgr.registry.Property(e.kind, key); prop != nil {
		return prop.Converter.ForGetter(stored)
	}

	return stored, nil
}

/*
storedValue reads the stored representation of a property. Dirty entities
read from the local map, committed entities read through from the graph.
*/
func (e *Entity) storedValue(key string) (interface{}, error) {

	if e.dirty {
		return e.local[key], nil
	}

	node, err := e.mgr.gm.FetchNodePart(e.mgr.part, e.key, e.kind, []string{key})
	if err != nil || node == nil {
		return nil, err
	}

	return node.Attr(key), nil
}

// Typed accessors
// ===============

/*
Str reads a property as a string. Returns the empty string if the property
is unset or unreadable.
*/
func (e *Entity) Str(key string) string {
	val, _ := e.GetProperty(key)

	if val == nil {
		return ""
	}

	return fmt.Sprint(val)
}

/*
Int reads a property as an integer. Returns 0 if the property is unset or
unreadable.
*/
func (e *Entity) Int(key string) int64 {
	val, _ := e.GetProperty(key)

	switch v := val.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}

	return 0
}

/*
Float reads a property as a floating point number. Returns 0 if the
property is unset or unreadable.
*/
func (e *Entity) Float(key string) float64 {
	val, _ := e.GetProperty(key)

	switch v := val.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}

	return 0
}

/*
Bool reads a property as a boolean. Returns false if the property is unset
or unreadable.
*/
func (e *Entity) Bool(key string) bool {
	val, _ := e.GetProperty(key)

	if b, ok := val.(bool); ok {
		return b
	}

	s := fmt.Sprint(val)

	return s == "true" || s == "1" || s == "on"
}

/*
Time reads a property as a point in time. Accepts stored epoch millisecond
values and strings in one of the supported date patterns. Returns the zero
time if the property is unset or unreadable.
*/
func (e *Entity) Time(key string) time.Time {
	val, _ := e.GetProperty(key)

	switch v := val.(type) {

	case time.Time:
		return v

	case int64:
		return time.Unix(v/1000, (v%1000)*int64(time.Millisecond)).UTC()

	case string:
		for _, pattern := range convert.DatePatterns {
			if t, err := time.ParseInLocation(pattern, v, time.UTC); err == nil {
				return t
			}
		}
	}

	return time.Time{}
}

// Relationship access
// ===================

/*
Relationships returns the relationships of this entity matching a given
spec (e.g. ":myedge::" for all edges of kind myedge). Results are cached
for the life of this entity instance and never invalidated, a loaded
entity is a point-in-time snapshot of its relationship sets. Dirty
entities have no relationships.
*/
func (e *Entity) Relationships(spec string) ([]*Relationship, error) {

	if val, ok := e.relCache.Get(spec); ok {
		return val.([]*Relationship), nil
	}

	if e.dirty {
		return nil, nil
	}

	_, edges, err := e.mgr.gm.TraverseMulti(e.mgr.part, e.key, e.kind, spec, true)
	if err != nil {
		return nil, err
	}

	rels := make([]*Relationship, 0, len(edges))
	for _, edge := range edges {
		rels = append(rels, &Relationship{e.mgr, edge})
	}

	e.relCache.Put(spec, rels)

	return rels, nil
}

/*
AllRelationships returns all relationships of this entity.
*/
func (e *Entity) AllRelationships() ([]*Relationship, error) {
	return e.Relationships(":::")
}

/*
RelationshipsOfKind returns all relationships of this entity of a given
edge kind.
*/
func (e *Entity) RelationshipsOfKind(kind string) ([]*Relationship, error) {
	return e.Relationships(":" + kind + "::")
}
