/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
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
StoreNodeFunc inserts a node in Weave. Nodes of registered entity kinds
are validated against the entity schema.
*/
type StoreNodeFunc struct {
	GM *graph.Manager
	MM *model.Manager
}

/*
Run executes the ECAL function.
*/
func (f *StoreNodeFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	part, node, trans, err := parseNodeArgs(args)
	if err != nil {
		return nil, err
	}

	if err := applyNodeSchema(f.MM, node); err != nil {
		return nil, err
	}

	if trans != nil {
		return nil, trans.StoreNode(part, node)
	}

	return nil, f.GM.StoreNode(part, node)
}

/*
DocString returns a descriptive string.
*/
func (f *StoreNodeFunc) DocString() (string, error) {
	return "Inserts a node in Weave.", nil
}

/*
UpdateNodeFunc updates a node in Weave (only update the given values of
the node). Nodes of registered entity kinds are validated against the
entity schema.
*/
type UpdateNodeFunc struct {
	GM *graph.Manager
	MM *model.Manager
}

/*
Run executes the ECAL function.
*/
func (f *UpdateNodeFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	part, node, trans, err := parseNodeArgs(args)
	if err != nil {
		return nil, err
	}

	if err := applyNodeSchema(f.MM, node); err != nil {
		return nil, err
	}

	if trans != nil {
		return nil, trans.UpdateNode(part, node)
	}

	return nil, f.GM.UpdateNode(part, node)
}

/*
DocString returns a descriptive string.
*/
func (f *UpdateNodeFunc) DocString() (string, error) {
	return "Updates a node in Weave (only update the given values of the node).", nil
}

/*
RemoveNodeFunc removes a node in Weave.
*/
type RemoveNodeFunc struct {
	GM *graph.Manager
}

/*
Run executes the ECAL function.
*/
func (f *RemoveNodeFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	if arglen := len(args); arglen != 3 && arglen != 4 {
		return nil, fmt.Errorf("Function requires 3 or 4 parameters: partition, node key" +
			" node kind and optionally a transaction")
	}

	part := fmt.Sprint(args[0])
	key := fmt.Sprint(args[1])
	kind := fmt.Sprint(args[2])

	if len(args) > 3 {
		trans, ok := args[3].(graph.Trans)
		if !ok {
			return nil, fmt.Errorf("Fourth parameter must be a transaction")
		}

		return nil, trans.RemoveNode(part, key, kind)
	}

	_, err := f.GM.RemoveNode(part, key, kind)

	return nil, err
}

/*
DocString returns a descriptive string.
*/
func (f *RemoveNodeFunc) DocString() (string, error) {
	return "Removes a node in Weave.", nil
}

/*
FetchNodeFunc fetches a node in Weave. Stored values of registered entity
properties are converted to their domain representation.
*/
type FetchNodeFunc struct {
	GM *graph.Manager
	MM *model.Manager
}

/*
Run executes the ECAL function.
*/
func (f *FetchNodeFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	if arglen := len(args); arglen != 3 {
		return nil, fmt.Errorf("Function requires 3 parameters: partition, node key" +
			" node kind")
	}

	part := fmt.Sprint(args[0])
	key := fmt.Sprint(args[1])
	kind := fmt.Sprint(args[2])

	node, err := f.GM.FetchNode(part, key, kind)
	if node == nil || err != nil {
		return nil, err
	}

	if err := presentNodeSchema(f.MM, node); err != nil {
		return nil, err
	}

	return toECALMap(node.Data()), nil
}

/*
DocString returns a descriptive string.
*/
func (f *FetchNodeFunc) DocString() (string, error) {
	return "Fetches a node in Weave.", nil
}

// Helper functions
// ================

/*
parseNodeArgs parses the common arguments of the node storage functions:
a partition, a node map and an optional transaction.
*/
func parseNodeArgs(args []interface{}) (string, data.Node, graph.Trans, error) {

	if arglen := len(args); arglen != 2 && arglen != 3 {
		return "", nil, nil, fmt.Errorf("Function requires 2 or 3 parameters: partition, node" +
			" map and optionally a transaction")
	}

	part := fmt.Sprint(args[0])

	nodeMap, ok := args[1].(map[interface{}]interface{})
	if !ok {
		return "", nil, nil, fmt.Errorf("Second parameter must be a map")
	}

	var trans graph.Trans

	if len(args) > 2 {
		if trans, ok = args[2].(graph.Trans); !ok {
			return "", nil, nil, fmt.Errorf("Third parameter must be a transaction")
		}
	}

	return part, NewGraphNodeFromECALMap(nodeMap), trans, nil
}

/*
applyNodeSchema converts the registered properties of a node to their
stored representation. Nodes of unregistered kinds pass through unchanged,
read-only properties are rejected.
*/
func applyNodeSchema(mm *model.Manager, node data.Node) error {

	if mm == nil || !mm.Registry().KnownKind(node.Kind()) {
		return nil
	}

	for attr, val := range node.Data() {

		prop := mm.Registry().Property(node.Kind(), attr)
		if prop == nil {
			continue
		}

		if prop.ReadOnly {
			return fmt.Errorf("Property %v of kind %v is read-only", attr, node.Kind())
		}

		stored, err := prop.Converter.ForSetter(val)
		if err != nil {
			return err
		}

		node.SetAttr(attr, stored)
	}

	return nil
}

/*
presentNodeSchema converts the registered properties of a node to their
domain representation. Properties which do not read back (e.g. passwords)
are removed.
*/
func presentNodeSchema(mm *model.Manager, node data.Node) error {

	if mm == nil || !mm.Registry().KnownKind(node.Kind()) {
		return nil
	}

	for attr, val := range node.Data() {

		prop := mm.Registry().Property(node.Kind(), attr)
		if prop == nil {
			continue
		}

		domain, err := prop.Converter.ForGetter(val)
		if err != nil {
			return err
		}

		node.SetAttr(attr, domain)
	}

	return nil
}

/*
toECALMap converts node or edge data to an ECAL object.
*/
func toECALMap(m map[string]interface{}) map[interface{}]interface{} {
	c := make(map[interface{}]interface{})

	for k, v := range m {
		c[k] = v
	}

	return c
}

/*
NewGraphNodeFromECALMap creates a new Node instance from a given map.
*/
func NewGraphNodeFromECALMap(d map[interface{}]interface{}) data.Node {
	node := data.NewGraphNode()

	for k, v := range d {
		node.SetAttr(fmt.Sprint(k), v)
	}

	return node
}
