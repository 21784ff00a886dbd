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
	"strings"

	"github.com/krotik/weave/graph"
)

/*
Principal is an authenticated actor in the entity layer. A principal is
backed by a graph node which security and member edges attach to. A nil
Principal represents the anonymous actor.
*/
type Principal interface {

	/*
	   Name returns the key of the node backing this principal.
	*/
	Name() string

	/*
	   Kind returns the kind of the node backing this principal.
	*/
	Kind() string

	/*
	   IsSuperuser returns if this principal bypasses all permission
	   checks.
	*/
	IsSuperuser() bool
}

/*
principal is the default Principal implementation.
*/
type principal struct {
	name      string
	kind      string
	superuser bool
}

/*
NewPrincipal creates a new Principal instance backed by a graph node of a
given key and kind.
*/
func NewPrincipal(name string, kind string, superuser bool) Principal {
	return &principal{name, kind, superuser}
}

/*
Name returns the key of the node backing this principal.
*/
func (p *principal) Name() string {
	return p.name
}

/*
Kind returns the kind of the node backing this principal.
*/
func (p *principal) Kind() string {
	return p.kind
}

/*
IsSuperuser returns if this principal bypasses all permission checks.
*/
func (p *principal) IsSuperuser() bool {
	return p.superuser
}

/*
ReadAllowed checks if a principal may read an entity.
*/
func (m *Manager) ReadAllowed(sec Principal, e *Entity) bool {
	return m.allowed(sec, e, ActionRead)
}

/*
WriteAllowed checks if a principal may write an entity.
*/
func (m *Manager) WriteAllowed(sec Principal, e *Entity) bool {
	return m.allowed(sec, e, ActionWrite)
}

/*
DeleteAllowed checks if a principal may delete an entity.
*/
func (m *Manager) DeleteAllowed(sec Principal, e *Entity) bool {
	return m.allowed(sec, e, ActionDelete)
}

/*
allowed resolves a permission check. A superuser principal is always
allowed, the anonymous principal never is. The owning principal of an
entity and the creator of a still dirty entity are allowed everything.
Otherwise security edges from the principal to the entity are consulted,
transitively through member edges with a visited set so cyclic group
graphs terminate. Group resolution never recurses through any other edge
kind.
*/
func (m *Manager) allowed(sec Principal, e *Entity, action string) bool {

	if sec == nil {
		return false
	}

	if sec.IsSuperuser() {
		return true
	}

	if e.Dirty() {
		return true
	}

	if owner, _ := e.storedValue(AttrOwner); owner == sec.Name() {
		return true
	}

	type pref struct {
		key  string
		kind string
	}

	visited := make(map[pref]bool)
	frontier := []pref{{sec.Name(), sec.Kind()}}

	for len(frontier) > 0 {
		p := frontier[0]
		frontier = frontier[1:]

		if visited[p] {
			continue
		}
		visited[p] = true

		if m.securityEdgeAllows(p.key, p.kind, e, action) {
			return true
		}

		// Follow group membership edges where this principal is the member

		_, edges, err := m.gm.TraverseMulti(m.part, p.key, p.kind,
			RoleMember+":"+EdgeKindMember+"::", false)
		if err != nil {
			log.Warning("Could not resolve group membership of ", p.key, ": ", err)
			continue
		}

		for _, edge := range edges {
			frontier = append(frontier, pref{edge.End2Key(), edge.End2Kind()})
		}
	}

	return false
}

/*
securityEdgeAllows checks if a security edge from a given principal node
to an entity permits an action.
*/
func (m *Manager) securityEdgeAllows(pkey string, pkind string, e *Entity, action string) bool {

	nodes, edges, err := m.gm.TraverseMulti(m.part, pkey, pkind,
		RolePrincipal+":"+EdgeKindSecurity+"::", true)
	if err != nil {
		log.Warning("Could not resolve security edges of ", pkey, ": ", err)
		return false
	}

	for i, node := range nodes {

		if node.Key() != e.Key() || node.Kind() != e.Kind() {
			continue
		}

		allowed, ok := edges[i].Attr(AttrAllowed).(string)
		if !ok {
			continue
		}

		for _, a := range strings.Split(allowed, ",") {
			if strings.TrimSpace(a) == action {
				return true
			}
		}
	}

	return false
}

/*
GrantPermission creates a security edge from a principal node to an entity
carrying a list of permitted actions. An existing security edge between
the two is replaced.
*/
func (m *Manager) GrantPermission(sec Principal, pkey string, pkind string,
	e *Entity, actions ...string) error {

	if sec == nil || !sec.IsSuperuser() {
		if owner, _ := e.storedValue(AttrOwner); sec == nil || owner != sec.Name() {
			return &ModelError{ErrDenied, "Only the owner or a superuser can grant permissions"}
		}
	}

	grantRel := &Relation{
		Name:        "weave.grant." + e.Kind(),
		Kind:        EdgeKindSecurity,
		SourceKind:  pkind,
		TargetKind:  e.Kind(),
		SourceRole:  RolePrincipal,
		TargetRole:  RoleResource,
		Direction:   Outgoing,
		Cardinality: ManyToMany,
	}

	principalNode, err := m.gm.FetchNodePart(m.part, pkey, pkind, nil)
	if err != nil {
		return err
	} else if principalNode == nil {
		return &ModelError{ErrNotFound, pkey}
	}

	source := newEntity(m, pkind, pkey, false, -1)
	tgt := newEntity(m, e.Kind(), e.Key(), false, e.storageID)

	// Replace any existing security edge between the two

	trans := graph.NewGraphTrans(m.gm)

	if err := m.pruneConflicting(trans, grantRel, source, RolePrincipal,
		e.Kind(), e.Key()); err != nil {
		return err
	}

	edge := m.newRelationshipEdge(grantRel, source, tgt)
	edge.SetAttr(AttrAllowed, strings.Join(actions, ","))

	if err := trans.StoreEdge(m.part, edge); err != nil {
		return err
	}

	return trans.Commit()
}

/*
AddGroupMembership creates a member edge from a principal node to a group
node. Both nodes must exist.
*/
func (m *Manager) AddGroupMembership(sec Principal, memberKey string, memberKind string,
	groupKey string, groupKind string) error {

	if sec == nil || !sec.IsSuperuser() {
		return &ModelError{ErrDenied, "Only a superuser can manage group membership"}
	}

	memberRel := &Relation{
		Name:        "weave.member." + groupKind,
		Kind:        EdgeKindMember,
		SourceKind:  memberKind,
		TargetKind:  groupKind,
		SourceRole:  RoleMember,
		TargetRole:  RoleGroup,
		Direction:   Outgoing,
		Cardinality: ManyToMany,
	}

	member := newEntity(m, memberKind, memberKey, false, -1)
	group := newEntity(m, groupKind, groupKey, false, -1)

	trans := graph.NewGraphTrans(m.gm)

	if err := trans.StoreEdge(m.part, m.newRelationshipEdge(memberRel, member, group)); err != nil {
		return err
	}

	return trans.Commit()
}
