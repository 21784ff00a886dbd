/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package dbfunc contains Weave specific functions for the event condition action language (ECAL).
*/
package dbfunc

import (
	"fmt"

	"github.com/krotik/ecal/parser"
	"github.com/krotik/weave/graph"
	"github.com/krotik/weave/graph/data"
	"github.com/krotik/weave/model"
)

/*
StoreEdgeFunc inserts or updates an edge in Weave. Edges whose kind
belongs to a registered relation are validated against the relation
declaration.
*/
type StoreEdgeFunc struct {
	GM *graph.Manager
	MM *model.Manager
}

/*
Run executes the ECAL function.
*/
func (f *StoreEdgeFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	if arglen := len(args); arglen != 2 && arglen != 3 {
		return nil, fmt.Errorf("Function requires 2 or 3 parameters: partition, edge" +
			" map and optionally a transaction")
	}

	part := fmt.Sprint(args[0])

	nodeMap, ok := args[1].(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("Second parameter must be a map")
	}

	var trans graph.Trans

	if len(args) > 2 {
		if trans, ok = args[2].(graph.Trans); !ok {
			return nil, fmt.Errorf("Third parameter must be a transaction")
		}
	}

	edge := data.NewGraphEdgeFromNode(NewGraphNodeFromECALMap(nodeMap))

	if err := applyEdgeSchema(f.MM, edge); err != nil {
		return nil, err
	}

	if trans != nil {
		return nil, trans.StoreEdge(part, edge)
	}

	return nil, f.GM.StoreEdge(part, edge)
}

/*
DocString returns a descriptive string.
*/
func (f *StoreEdgeFunc) DocString() (string, error) {
	return "Inserts or updates an edge in Weave.", nil
}

/*
RemoveEdgeFunc removes an edge in Weave.
*/
type RemoveEdgeFunc struct {
	GM *graph.Manager
}

/*
Run executes the ECAL function.
*/
func (f *RemoveEdgeFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	if arglen := len(args); arglen != 3 && arglen != 4 {
		return nil, fmt.Errorf("Function requires 3 or 4 parameters: partition, edge key," +
			" edge kind and optionally a transaction")
	}

	part := fmt.Sprint(args[0])
	key := fmt.Sprint(args[1])
	kind := fmt.Sprint(args[2])

	if len(args) > 3 {
		trans, ok := args[3].(graph.Trans)
		if !ok {
			return nil, fmt.Errorf("Fourth parameter must be a transaction")
		}

		return nil, trans.RemoveEdge(part, key, kind)
	}

	_, err := f.GM.RemoveEdge(part, key, kind)

	return nil, err
}

/*
DocString returns a descriptive string.
*/
func (f *RemoveEdgeFunc) DocString() (string, error) {
	return "Removes an edge in Weave.", nil
}

/*
FetchEdgeFunc fetches an edge in Weave.
*/
type FetchEdgeFunc struct {
	GM *graph.Manager
}

/*
Run executes the ECAL function.
*/
func (f *FetchEdgeFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	if arglen := len(args); arglen != 3 {
		return nil, fmt.Errorf("Function requires 3 parameters: partition, edge key and" +
			" edge kind")
	}

	part := fmt.Sprint(args[0])
	key := fmt.Sprint(args[1])
	kind := fmt.Sprint(args[2])

	node, err := f.GM.FetchEdge(part, key, kind)
	if node == nil || err != nil {
		return nil, err
	}

	return toECALMap(node.Data()), nil
}

/*
DocString returns a descriptive string.
*/
func (f *FetchEdgeFunc) DocString() (string, error) {
	return "Fetches an edge in Weave.", nil
}

/*
TraverseFunc traverses an edge in Weave.
*/
type TraverseFunc struct {
	GM *graph.Manager
}

/*
Run executes the ECAL function.
*/
func (f *TraverseFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	if arglen := len(args); arglen != 4 {
		return nil, fmt.Errorf("Function requires 4 parameters: partition, node key," +
			" node kind and a traversal spec")
	}

	part := fmt.Sprint(args[0])
	key := fmt.Sprint(args[1])
	kind := fmt.Sprint(args[2])
	spec := fmt.Sprint(args[3])

	nodes, edges, err := f.GM.TraverseMulti(part, key, kind, spec, true)
	if err != nil {
		return nil, err
	}

	resNodes := make([]interface{}, len(nodes))
	for i, n := range nodes {
		resNodes[i] = toECALMap(n.Data())
	}

	resEdges := make([]interface{}, len(edges))
	for i, e := range edges {
		resEdges[i] = toECALMap(e.Data())
	}

	return []interface{}{resNodes, resEdges}, nil
}

/*
DocString returns a descriptive string.
*/
func (f *TraverseFunc) DocString() (string, error) {
	return "Traverses an edge in Weave from a given node.", nil
}

/*
applyEdgeSchema validates an edge against the relation registered for its
edge kind. End kinds must be assignable to the declared kinds of their
role, registered relationship properties are converted to their stored
representation. Edges of unregistered kinds pass through unchanged.
*/
func applyEdgeSchema(mm *model.Manager, edge data.Edge) error {

	rel := relationForEdgeKind(mm, edge.Kind())
	if rel == nil {
		return nil
	}

	ends := []struct {
		role string
		kind string
	}{
		{edge.End1Role(), edge.End1Kind()},
		{edge.End2Role(), edge.End2Kind()},
	}

	for _, end := range ends {

		declared := ""

		if end.role == rel.SourceRole {
			declared = rel.SourceKind
		} else if end.role == rel.TargetRole {
			declared = rel.TargetKind
		} else {
			return fmt.Errorf("Edge role %v is not part of relation %v",
				end.role, rel.Name)
		}

		if !mm.Registry().IsAssignable(end.kind, declared) {
			return fmt.Errorf("Edge end kind %v cannot stand in for %v of relation %v",
				end.kind, declared, rel.Name)
		}
	}

	for name, prop := range rel.Properties {

		val := edge.Attr(name)
		if val == nil {
			continue
		}

		stored, err := prop.Converter.ForSetter(val)
		if err != nil {
			return err
		}

		edge.SetAttr(name, stored)
	}

	return nil
}

/*
relationForEdgeKind looks up the relation registered for an edge kind.
*/
func relationForEdgeKind(mm *model.Manager, kind string) *model.Relation {

	if mm == nil {
		return nil
	}

	for _, name := range mm.Registry().Relations() {
		if rel := mm.Registry().Relation(name); rel.Kind == kind {
			return rel
		}
	}

	return nil
}
