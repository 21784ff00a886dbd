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
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/krotik/common/timeutil"
	"github.com/krotik/weave/graph"
	"github.com/krotik/weave/graph/data"
)

/*
CreateRelationship establishes a relationship of a registered relation
between a source entity and a target. The target can be given as an entity
or as a key to resolve against the relation's target kind. The edge is
created and conflicting edges are pruned per the relation's cardinality
inside a single transaction:

OneToOne and ManyToOne prune all other outgoing edges of the relation's
edge kind from the source whose far end is assignable to the target kind.
OneToMany prunes all other incoming edges of the edge kind into the target
whose far end is assignable to the source kind. ManyToMany prunes nothing.

On any failure the whole operation rolls back, no partial edge set is ever
observable. Dirty endpoints are committed as part of the transaction.
*/
func (m *Manager) CreateRelationship(sec Principal, relName string, source *Entity,
	target interface{}, props map[string]interface{}) (*Relationship, error) {

	rel := m.registry.Relation(relName)
	if rel == nil {
		return nil, &ModelError{ErrInvalidData, fmt.Sprintf("Unknown relation: %v", relName)}
	}

	tgt, err := m.resolveTarget(rel, target)
	if err != nil {
		return nil, err
	}

	if !m.WriteAllowed(sec, source) || !m.WriteAllowed(sec, tgt) {
		return nil, &ModelError{ErrDenied,
			fmt.Sprintf("Cannot establish %v from %v to %v", relName, source.Key(), tgt.Key())}
	}

	trans := graph.NewGraphTrans(m.gm)

	if err := source.Commit(trans); err != nil {
		return nil, err
	}
	if err := tgt.Commit(trans); err != nil {
		return nil, err
	}

	edge := m.newRelationshipEdge(rel, source, tgt)

	for k, v := range props {
		stored := v

		if prop, ok := rel.Properties[k]; ok {
			if stored, err = prop.Converter.ForSetter(v); err != nil {
				return nil, err
			}
		}

		edge.SetAttr(k, stored)
	}

	if err := trans.StoreEdge(m.part, edge); err != nil {
		return nil, err
	}

	switch rel.Cardinality {

	case OneToOne, ManyToOne:
		err = m.pruneConflicting(trans, rel, source, rel.SourceRole, rel.TargetKind, "")

	case OneToMany:
		err = m.pruneConflicting(trans, rel, tgt, rel.TargetRole, rel.SourceKind, "")
	}

	if err != nil {
		return nil, err
	}

	if err := trans.Commit(); err != nil {
		return nil, err
	}

	rr := &Relationship{m, edge}

	if rel.Direction == Incoming {

		// Normalize the wrapper so that its first end is the source

		rr = &Relationship{m, normalizeEdge(edge, source.Key(), source.Kind())}
	}

	return rr, nil
}

/*
RemoveRelationship removes relationships of a registered relation between
a source entity and a target inside a single transaction. OneToOne and
ManyToOne remove all matching outgoing edges from the source, OneToMany
all matching incoming edges into the target. ManyToMany removes only the
exact edges between source and target.
*/
func (m *Manager) RemoveRelationship(sec Principal, relName string, source *Entity,
	target interface{}) error {

	rel := m.registry.Relation(relName)
	if rel == nil {
		return &ModelError{ErrInvalidData, fmt.Sprintf("Unknown relation: %v", relName)}
	}

	tgt, err := m.resolveTarget(rel, target)
	if err != nil {
		return err
	}

	if !m.WriteAllowed(sec, source) || !m.WriteAllowed(sec, tgt) {
		return &ModelError{ErrDenied,
			fmt.Sprintf("Cannot remove %v from %v to %v", relName, source.Key(), tgt.Key())}
	}

	trans := graph.NewGraphTrans(m.gm)

	switch rel.Cardinality {

	case OneToOne, ManyToOne:
		err = m.pruneConflicting(trans, rel, source, rel.SourceRole, rel.TargetKind, "")

	case OneToMany:
		err = m.pruneConflicting(trans, rel, tgt, rel.TargetRole, rel.SourceKind, "")

	case ManyToMany:
		err = m.pruneConflicting(trans, rel, source, rel.SourceRole, rel.TargetKind, tgt.Key())
	}

	if err != nil {
		return err
	}

	return trans.Commit()
}

/*
RelatedNodes returns the entities related to a source entity through a
registered relation. The traversal has depth 1, follows only the declared
direction, filters far ends by kind assignability to the relation's target
kind and by read permission and excludes the source itself. If the
relation declares an order attribute the results are sorted by its edge
value, ties and relations without one sort by kind and key.
*/
func (m *Manager) RelatedNodes(sec Principal, relName string, source *Entity) ([]*Entity, error) {

	rel := m.registry.Relation(relName)
	if rel == nil {
		return nil, &ModelError{ErrInvalidData, fmt.Sprintf("Unknown relation: %v", relName)}
	}

	if source.Dirty() {
		return nil, nil
	}

	role := rel.SourceRole

	nodes, edges, err := m.gm.TraverseMulti(m.part, source.Key(), source.Kind(),
		":"+rel.Kind+"::", true)
	if err != nil {
		return nil, err
	}

	var ret []*Entity

	ordinals := make(map[*Entity]int64)

	for i, node := range nodes {

		if edges[i].End1Role() != role {
			continue
		}

		if !m.registry.IsAssignable(node.Kind(), rel.TargetKind) {
			continue
		}

		if node.Key() == source.Key() && node.Kind() == source.Kind() {
			continue
		}

		sid, _ := node.Attr(AttrStorageID).(int64)
		ent := newEntity(m, node.Kind(), node.Key(), false, sid)

		if !m.ReadAllowed(sec, ent) {
			continue
		}

		if rel.OrderAttr != "" {
			ordinals[ent] = toOrdinal(edges[i].Attr(rel.OrderAttr))
		}

		ret = append(ret, ent)
	}

	sort.Slice(ret, func(i, j int) bool {
		if ordinals[ret[i]] != ordinals[ret[j]] {
			return ordinals[ret[i]] < ordinals[ret[j]]
		}
		if ret[i].Kind() != ret[j].Kind() {
			return ret[i].Kind() < ret[j].Kind()
		}
		return ret[i].Key() < ret[j].Key()
	})

	return ret, nil
}

/*
toOrdinal converts an order attribute value to a sortable number. Missing
or unusable values order as 0.
*/
func toOrdinal(val interface{}) int64 {

	switch v := val.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}

	return 0
}

/*
RelatedNode returns the single entity related to a source entity through a
registered relation. Returns nil if there is no related entity.
*/
func (m *Manager) RelatedNode(sec Principal, relName string, source *Entity) (*Entity, error) {

	ret, err := m.RelatedNodes(sec, relName, source)
	if err != nil || len(ret) == 0 {
		return nil, err
	}

	return ret[0], nil
}

/*
resolveTarget resolves the target of a relationship operation. Accepts an
entity or a key to look up against the relation's target kind.
*/
func (m *Manager) resolveTarget(rel *Relation, target interface{}) (*Entity, error) {

	switch t := target.(type) {

	case *Entity:
		return t, nil

	case string:
		tgt, err := m.FetchEntity(rel.TargetKind, t)
		if err != nil {
			return nil, err
		}
		return tgt, nil
	}

	return nil, &ModelError{ErrInvalidData,
		fmt.Sprintf("Cannot resolve relationship target: %v", target)}
}

/*
newRelationshipEdge builds the graph edge for a new relationship. For
outgoing relations the source is the controlling first end, for incoming
relations the edge runs from the target to the source.
*/
func (m *Manager) newRelationshipEdge(rel *Relation, source *Entity, tgt *Entity) data.Edge {

	srcNode := data.NewGraphNode()
	srcNode.SetAttr(data.NodeKey, source.Key())
	srcNode.SetAttr(data.NodeKind, source.Kind())

	tgtNode := data.NewGraphNode()
	tgtNode.SetAttr(data.NodeKey, tgt.Key())
	tgtNode.SetAttr(data.NodeKind, tgt.Kind())

	key := uuid.New().String()

	var edge data.Edge

	if rel.Direction == Outgoing {
		edge = data.NewGraphEdgeBetween(key, rel.Kind, rel.SourceRole, srcNode,
			rel.TargetRole, tgtNode, rel.CascadeDelete)
	} else {
		edge = data.NewGraphEdgeBetween(key, rel.Kind, rel.TargetRole, tgtNode,
			rel.SourceRole, srcNode, rel.CascadeDelete)
	}

	edge.SetAttr(AttrCreated, timeutil.MakeTimestamp())

	return edge
}

/*
pruneConflicting stages the removal of all edges of a relation's edge kind
at a given entity where the entity plays the given role and the far end is
assignable to farKind. If farKey is not empty only edges to that far end
key are removed. The edge kind is authoritative for the conflict check,
the far end kind may also be a trait of the relation's declared kind.
*/
func (m *Manager) pruneConflicting(trans graph.Trans, rel *Relation, at *Entity,
	role string, farKind string, farKey string) error {

	_, edges, err := m.gm.TraverseMulti(m.part, at.Key(), at.Kind(),
		":"+rel.Kind+"::", true)
	if err != nil {
		return err
	}

	for _, edge := range edges {

		// End1 describes the entity the traversal started from

		if edge.End1Role() != role {
			continue
		}

		if !m.registry.IsAssignable(edge.End2Kind(), farKind) {
			continue
		}

		if farKey != "" && edge.End2Key() != farKey {
			continue
		}

		if err := trans.RemoveEdge(m.part, edge.Key(), edge.Kind()); err != nil {
			return err
		}
	}

	return nil
}

/*
normalizeEdge returns an edge with the given node as its first end.
*/
func normalizeEdge(edge data.Edge, key string, kind string) data.Edge {

	if edge.End1Key() == key && edge.End1Kind() == kind {
		return edge
	}

	norm := data.NewGraphEdgeFromNode(data.NodeClone(edge))

	swap := func(attr1 string, attr2 string) {
		tmp := norm.Attr(attr1)
		norm.SetAttr(attr1, norm.Attr(attr2))
		norm.SetAttr(attr2, tmp)
	}

	swap(data.EdgeEnd1Key, data.EdgeEnd2Key)
	swap(data.EdgeEnd1Kind, data.EdgeEnd2Kind)
	swap(data.EdgeEnd1Role, data.EdgeEnd2Role)
	swap(data.EdgeEnd1Cascading, data.EdgeEnd2Cascading)

	return norm
}
