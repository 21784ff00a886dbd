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

	"github.com/krotik/weave/graph"
	"github.com/krotik/weave/graph/data"
)

/*
Relationship is a typed in-memory wrapper around a graph edge. The first
end of the wrapped edge is the source of the relationship.
*/
type Relationship struct {
	mgr  *Manager  // Manager which materialized this relationship
	edge data.Edge // Backing graph edge
}

/*
Key returns the key of this relationship.
*/
func (r *Relationship) Key() string {
	return r.edge.Key()
}

/*
Kind returns the edge kind of this relationship.
*/
func (r *Relationship) Kind() string {
	return r.edge.Kind()
}

/*
SourceKey returns the key of the source entity.
*/
func (r *Relationship) SourceKey() string {
	return r.edge.End1Key()
}

/*
SourceKind returns the kind of the source entity.
*/
func (r *Relationship) SourceKind() string {
	return r.edge.End1Kind()
}

/*
TargetKey returns the key of the target entity.
*/
func (r *Relationship) TargetKey() string {
	return r.edge.End2Key()
}

/*
TargetKind returns the kind of the target entity.
*/
func (r *Relationship) TargetKind() string {
	return r.edge.End2Kind()
}

/*
IsCascading returns if removing the source entity also removes the target
entity.
*/
func (r *Relationship) IsCascading() bool {
	return r.edge.End1IsCascading()
}

/*
String returns a string representation of this relationship.
*/
func (r *Relationship) String() string {
	return fmt.Sprintf("Relationship %v %v (%v %v -> %v %v)", r.Kind(), r.Key(),
		r.SourceKind(), r.SourceKey(), r.TargetKind(), r.TargetKey())
}

/*
descriptor looks up the registered relation matching the edge kind of this
relationship. Returns nil for unregistered edge kinds.
*/
func (r *Relationship) descriptor() *Relation {

	for _, name := range r.mgr.registry.Relations() {
		if rel := r.mgr.registry.Relation(name); rel.Kind == r.Kind() {
			return rel
		}
	}

	return nil
}

/*
GetProperty reads a property of this relationship. The stored value is
converted to its domain representation if the relation declares the
property.
*/
func (r *Relationship) GetProperty(key string) (interface{}, error) {

	stored := r.edge.Attr(key)

	if rel := r.descriptor(); rel != nil {
		if prop, ok := rel.Properties[key]; ok {
			return prop.Converter.ForGetter(stored)
		}
	}

	return stored, nil
}

/*
SetProperty sets a property of this relationship and writes the edge back
to the graph in its own transaction.
*/
func (r *Relationship) SetProperty(key string, val interface{}) error {

	if key == "" {
		log.Warning("Denied write with empty property key on ", r)
		return &ModelError{ErrDenied, "Property key must not be empty"}
	}

	stored := val

	if rel := r.descriptor(); rel != nil {
		if prop, ok := rel.Properties[key]; ok {
			var err error

			if prop.ReadOnly {
				return &ModelError{ErrDenied,
					fmt.Sprintf("Property %v of relation %v is read-only", key, rel.Name)}
			}

			if stored, err = prop.Converter.ForSetter(val); err != nil {
				return err
			}
		}
	}

	if r.edge.Attr(key) == stored {
		return nil
	}

	edge, err := r.mgr.gm.FetchEdge(r.mgr.part, r.Key(), r.Kind())
	if err != nil {
		return err
	} else if edge == nil {
		return &ModelError{ErrNotFound, fmt.Sprintf("%v %v", r.Kind(), r.Key())}
	}

	edge.SetAttr(key, stored)

	trans := graph.NewGraphTrans(r.mgr.gm)

	if err := trans.StoreEdge(r.mgr.part, edge); err != nil {
		return err
	}

	if err := trans.Commit(); err != nil {
		return err
	}

	r.edge.SetAttr(key, stored)

	return nil
}
