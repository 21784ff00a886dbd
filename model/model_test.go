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
	"testing"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/weave/graph"
	"github.com/krotik/weave/graph/data"
	"github.com/krotik/weave/graph/graphstorage"
	"github.com/krotik/weave/model/convert"
)

/*
superuser is the principal used by tests which bypass permission checks.
*/
var superuser = NewPrincipal("root", "user", true)

/*
newTestManager creates a manager with a populated test schema.
*/
func newTestManager() *Manager {
	mgs := graphstorage.NewMemoryGraphStorage("modeltest")
	gm := graph.NewGraphManager(mgs)

	reg := NewRegistry()

	errorutil.AssertOk(reg.RegisterKind("file", nil,
		&Property{Name: "size", Converter: &convert.IntConverter{}},
		&Property{Name: "secret", Converter: &convert.PasswordConverter{}},
		&Property{Name: "archived", Converter: &convert.BoolConverter{}, Indexed: true},
		&Property{Name: "mime", Converter: NewTestEnum(), ReadOnly: true}))

	errorutil.AssertOk(reg.RegisterKind("folder", []string{"container"}))
	errorutil.AssertOk(reg.RegisterKind("user", nil))
	errorutil.AssertOk(reg.RegisterKind("group", nil))
	errorutil.AssertOk(reg.RegisterKind("doc", nil))

	errorutil.AssertOk(reg.RegisterRelation(&Relation{
		Name:        "contains",
		Kind:        "contains",
		SourceKind:  "folder",
		TargetKind:  "file",
		SourceRole:  "folder",
		TargetRole:  "file",
		Direction:   Outgoing,
		Cardinality: OneToMany,
		OrderAttr:   "order",
	}))

	errorutil.AssertOk(reg.RegisterRelation(&Relation{
		Name:        "mainfile",
		Kind:        "mainfile",
		SourceKind:  "folder",
		TargetKind:  "file",
		SourceRole:  "folder",
		TargetRole:  "file",
		Direction:   Outgoing,
		Cardinality: ManyToOne,
	}))

	errorutil.AssertOk(reg.RegisterRelation(&Relation{
		Name:        "readme",
		Kind:        "readme",
		SourceKind:  "folder",
		TargetKind:  "file",
		SourceRole:  "folder",
		TargetRole:  "file",
		Direction:   Outgoing,
		Cardinality: OneToOne,
	}))

	errorutil.AssertOk(reg.RegisterRelation(&Relation{
		Name:        "links",
		Kind:        "links",
		SourceKind:  "folder",
		TargetKind:  "file",
		SourceRole:  "folder",
		TargetRole:  "file",
		Direction:   Outgoing,
		Cardinality: ManyToMany,
	}))

	errorutil.AssertOk(reg.RegisterRelation(&Relation{
		Name:          "owns",
		Kind:          "owns",
		SourceKind:    "folder",
		TargetKind:    "file",
		SourceRole:    "folder",
		TargetRole:    "file",
		Direction:     Outgoing,
		Cardinality:   OneToMany,
		CascadeDelete: true,
	}))

	return NewManager(gm, reg, "main")
}

/*
NewTestEnum creates the enum converter used for the read-only test
property.
*/
func NewTestEnum() convert.Converter {
	return convert.NewEnumConverter("text", "binary")
}

/*
commitEntity creates and commits an entity of a given kind and key.
*/
func commitEntity(t *testing.T, m *Manager, kind string, key string) *Entity {
	e, err := m.NewEntity(kind, key)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Commit(nil); err != nil {
		t.Fatal(err)
	}

	return e
}

/*
storeRawNode stores a plain graph node bypassing the entity layer.
*/
func storeRawNode(t *testing.T, m *Manager, kind string, key string) {
	node := data.NewGraphNode()
	node.SetAttr(data.NodeKey, key)
	node.SetAttr(data.NodeKind, kind)

	if err := m.gm.StoreNode(m.part, node); err != nil {
		t.Fatal(err)
	}
}

func TestRegistry(t *testing.T) {
	m := newTestManager()
	reg := m.Registry()

	if kinds := reg.Kinds(); len(kinds) != 5 || kinds[0] != "doc" {
		t.Error("Unexpected kinds:", kinds)
		return
	}

	if rels := reg.Relations(); len(rels) != 4 || rels[0] != "contains" {
		t.Error("Unexpected relations:", rels)
		return
	}

	if !reg.IsAssignable("folder", "folder") || !reg.IsAssignable("folder", "container") {
		t.Error("Folder should be assignable to itself and its trait")
		return
	}

	if reg.IsAssignable("file", "container") {
		t.Error("File should not be assignable to container")
		return
	}

	if traits := reg.Traits("folder"); len(traits) != 1 || traits[0] != "container" {
		t.Error("Unexpected traits:", traits)
		return
	}

	if reg.Property("file", "size") == nil || reg.Property("file", "nonexist") != nil {
		t.Error("Unexpected property lookup result")
		return
	}

	// Registration errors

	if err := reg.RegisterKind("", nil); err == nil {
		t.Error("Empty kind name should be rejected")
		return
	}

	if err := reg.RegisterKind("bad", nil, &Property{Name: "x"}); err == nil {
		t.Error("Property without converter should be rejected")
		return
	}

	if err := reg.RegisterRelation(&Relation{Name: "x", Kind: "x",
		SourceKind: "nonexist", TargetKind: "file"}); err == nil {
		t.Error("Unknown source kind should be rejected")
		return
	}

	if err := reg.RegisterRelation(&Relation{Name: "x", Kind: "x",
		SourceKind: "folder", TargetKind: "nonexist"}); err == nil {
		t.Error("Unknown target kind should be rejected")
		return
	}

	// A trait is a valid relation target

	if err := reg.RegisterRelation(&Relation{Name: "holds", Kind: "holds",
		SourceKind: "folder", TargetKind: "container"}); err != nil {
		t.Error(err)
		return
	}
}
