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
)

/*
relatedKeys returns the keys of the entities related through a relation.
*/
func relatedKeys(t *testing.T, m *Manager, relName string, source *Entity) []string {
	ents, err := m.RelatedNodes(superuser, relName, source)
	if err != nil {
		t.Fatal(err)
	}

	keys := make([]string, 0, len(ents))
	for _, ent := range ents {
		keys = append(keys, ent.Key())
	}

	return keys
}

func TestManyToOnePruning(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	t1 := commitEntity(t, m, "file", "t1")
	t2 := commitEntity(t, m, "file", "t2")

	if _, err := m.CreateRelationship(superuser, "mainfile", folder, t1, nil); err != nil {
		t.Error(err)
		return
	}

	if _, err := m.CreateRelationship(superuser, "mainfile", folder, t2, nil); err != nil {
		t.Error(err)
		return
	}

	// The second assignment replaces the first

	keys := relatedKeys(t, m, "mainfile", folder)
	if len(keys) != 1 || keys[0] != "t2" {
		t.Error("Unexpected related nodes:", keys)
		return
	}

	if count := m.GraphManager().EdgeCount("mainfile"); count != 1 {
		t.Error("Unexpected edge count:", count)
		return
	}
}

func TestOneToOnePruning(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	t1 := commitEntity(t, m, "file", "t1")
	commitEntity(t, m, "file", "t2")

	if _, err := m.CreateRelationship(superuser, "readme", folder, t1, nil); err != nil {
		t.Error(err)
		return
	}

	if _, err := m.CreateRelationship(superuser, "readme", folder, "t2", nil); err != nil {
		t.Error(err)
		return
	}

	// The second assignment replaces the first

	keys := relatedKeys(t, m, "readme", folder)
	if len(keys) != 1 || keys[0] != "t2" {
		t.Error("Unexpected related nodes:", keys)
		return
	}

	if count := m.GraphManager().EdgeCount("readme"); count != 1 {
		t.Error("Unexpected edge count:", count)
		return
	}

	// OneToOne removal clears the assignment like ManyToOne

	if err := m.RemoveRelationship(superuser, "readme", folder, t1); err != nil {
		t.Error(err)
		return
	}

	if keys := relatedKeys(t, m, "readme", folder); len(keys) != 0 {
		t.Error("Unexpected related nodes:", keys)
		return
	}
}

func TestManyToManyNoPruning(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	commitEntity(t, m, "file", "t1")
	commitEntity(t, m, "file", "t2")

	// Targets can also be resolved by key

	if _, err := m.CreateRelationship(superuser, "links", folder, "t1", nil); err != nil {
		t.Error(err)
		return
	}

	if _, err := m.CreateRelationship(superuser, "links", folder, "t2", nil); err != nil {
		t.Error(err)
		return
	}

	keys := relatedKeys(t, m, "links", folder)
	if len(keys) != 2 || keys[0] != "t1" || keys[1] != "t2" {
		t.Error("Unexpected related nodes:", keys)
		return
	}
}

func TestOneToManyReassertion(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	fileB := commitEntity(t, m, "file", "b")
	fileC := commitEntity(t, m, "file", "c")

	for _, target := range []*Entity{fileB, fileC, fileB} {
		if _, err := m.CreateRelationship(superuser, "contains", folder, target, nil); err != nil {
			t.Error(err)
			return
		}
	}

	// Re-asserting folder -> b must not multiply edges

	keys := relatedKeys(t, m, "contains", folder)
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
		t.Error("Unexpected related nodes:", keys)
		return
	}

	if count := m.GraphManager().EdgeCount("contains"); count != 2 {
		t.Error("Unexpected edge count:", count)
		return
	}

	// A second folder may not claim a contained file

	folder2 := commitEntity(t, m, "folder", "f2")

	if _, err := m.CreateRelationship(superuser, "contains", folder2, fileB, nil); err != nil {
		t.Error(err)
		return
	}

	if keys := relatedKeys(t, m, "contains", folder); len(keys) != 1 || keys[0] != "c" {
		t.Error("Unexpected related nodes:", keys)
		return
	}

	if keys := relatedKeys(t, m, "contains", folder2); len(keys) != 1 || keys[0] != "b" {
		t.Error("Unexpected related nodes:", keys)
		return
	}
}

func TestOrderedRelatedNodes(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	commitEntity(t, m, "file", "a")
	commitEntity(t, m, "file", "b")
	commitEntity(t, m, "file", "c")

	for key, order := range map[string]int64{"a": 3, "b": 2, "c": 1} {
		if _, err := m.CreateRelationship(superuser, "contains", folder, key,
			map[string]interface{}{"order": order}); err != nil {
			t.Error(err)
			return
		}
	}

	// The order attribute of the edges wins over the key order

	keys := relatedKeys(t, m, "contains", folder)
	if len(keys) != 3 || keys[0] != "c" || keys[1] != "b" || keys[2] != "a" {
		t.Error("Unexpected related nodes:", keys)
		return
	}

	// An edge without the attribute orders as 0 and comes first

	commitEntity(t, m, "file", "z")

	if _, err := m.CreateRelationship(superuser, "contains", folder, "z", nil); err != nil {
		t.Error(err)
		return
	}

	keys = relatedKeys(t, m, "contains", folder)
	if len(keys) != 4 || keys[0] != "z" {
		t.Error("Unexpected related nodes:", keys)
		return
	}
}

func TestRelationshipProperties(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	file := commitEntity(t, m, "file", "t1")

	rr, err := m.CreateRelationship(superuser, "contains", folder, file,
		map[string]interface{}{"order": int64(3)})
	if err != nil {
		t.Error(err)
		return
	}

	if rr.SourceKey() != "f1" || rr.TargetKey() != "t1" || rr.Kind() != "contains" {
		t.Error("Unexpected relationship:", rr)
		return
	}

	if val, _ := rr.GetProperty("order"); val != int64(3) {
		t.Error("Unexpected property value:", val)
		return
	}

	if err := rr.SetProperty("order", int64(4)); err != nil {
		t.Error(err)
		return
	}

	edge, err := m.GraphManager().FetchEdge(m.Partition(), rr.Key(), rr.Kind())
	if err != nil || edge.Attr("order") != int64(4) {
		t.Error("Property should have been written through:", edge, err)
		return
	}

	// Relationship access from the entity side

	rels, err := folder.RelationshipsOfKind("contains")
	if err != nil || len(rels) != 1 || rels[0].TargetKey() != "t1" {
		t.Error("Unexpected relationships:", rels, err)
		return
	}

	// Cached snapshot does not see later changes

	file2 := commitEntity(t, m, "file", "t2")

	if _, err := m.CreateRelationship(superuser, "contains", folder, file2, nil); err != nil {
		t.Error(err)
		return
	}

	rels2, _ := folder.RelationshipsOfKind("contains")
	if len(rels2) != 1 {
		t.Error("Cached relationship set should be a point-in-time snapshot")
		return
	}

	fresh, _ := m.FetchEntity("folder", "f1")

	if rels3, _ := fresh.RelationshipsOfKind("contains"); len(rels3) != 2 {
		t.Error("Freshly loaded entity should see both relationships")
		return
	}
}

func TestRelationshipTargetResolution(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")

	if _, err := m.CreateRelationship(superuser, "nonexist", folder, "x", nil); err == nil ||
		err.(*ModelError).Type != ErrInvalidData {
		t.Error("Unknown relation should be rejected:", err)
		return
	}

	if _, err := m.CreateRelationship(superuser, "contains", folder, "nonexist", nil); err == nil ||
		err.(*ModelError).Type != ErrNotFound {
		t.Error("Unresolvable target should be reported:", err)
		return
	}

	if _, err := m.CreateRelationship(superuser, "contains", folder, 42, nil); err == nil ||
		err.(*ModelError).Type != ErrInvalidData {
		t.Error("Invalid target reference should be rejected:", err)
		return
	}
}

func TestRelationshipRollback(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	commitEntity(t, m, "file", "t1")

	// Wrapper for a node which does not exist in the store

	phantom := newEntity(m, "file", "ghost", false, 7)

	if _, err := m.CreateRelationship(superuser, "contains", folder, phantom, nil); err == nil {
		t.Error("Relationship to a missing node should fail")
		return
	}

	// The failed transaction left no partial edge set behind

	if keys := relatedKeys(t, m, "contains", folder); len(keys) != 0 {
		t.Error("Unexpected related nodes:", keys)
		return
	}

	if count := m.GraphManager().EdgeCount("contains"); count != 0 {
		t.Error("Unexpected edge count:", count)
		return
	}
}

func TestRemoveRelationship(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	fileB := commitEntity(t, m, "file", "b")
	fileC := commitEntity(t, m, "file", "c")

	m.CreateRelationship(superuser, "contains", folder, fileB, nil)
	m.CreateRelationship(superuser, "contains", folder, fileC, nil)

	// OneToMany removal only touches edges into the given target

	if err := m.RemoveRelationship(superuser, "contains", folder, fileB); err != nil {
		t.Error(err)
		return
	}

	if keys := relatedKeys(t, m, "contains", folder); len(keys) != 1 || keys[0] != "c" {
		t.Error("Unexpected related nodes:", keys)
		return
	}

	// ManyToMany removal deletes only the exact edge

	m.CreateRelationship(superuser, "links", folder, fileB, nil)
	m.CreateRelationship(superuser, "links", folder, fileC, nil)

	if err := m.RemoveRelationship(superuser, "links", folder, fileB); err != nil {
		t.Error(err)
		return
	}

	if keys := relatedKeys(t, m, "links", folder); len(keys) != 1 || keys[0] != "c" {
		t.Error("Unexpected related nodes:", keys)
		return
	}

	// ManyToOne removal clears the single assignment

	m.CreateRelationship(superuser, "mainfile", folder, fileB, nil)

	if err := m.RemoveRelationship(superuser, "mainfile", folder, fileC); err != nil {
		t.Error(err)
		return
	}

	if keys := relatedKeys(t, m, "mainfile", folder); len(keys) != 0 {
		t.Error("Unexpected related nodes:", keys)
		return
	}
}

func TestCascadeDelete(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	commitEntity(t, m, "file", "dep")

	if _, err := m.CreateRelationship(superuser, "owns", folder, "dep", nil); err != nil {
		t.Error(err)
		return
	}

	if err := m.RemoveEntity(superuser, folder); err != nil {
		t.Error(err)
		return
	}

	// The owned file is removed with its owner

	if _, err := m.FetchEntity("file", "dep"); err == nil {
		t.Error("Dependent entity should be gone")
		return
	}

	if count := m.GraphManager().EdgeCount("owns"); count != 0 {
		t.Error("Unexpected edge count:", count)
		return
	}
}

func TestRelatedNodeSingle(t *testing.T) {
	m := newTestManager()

	folder := commitEntity(t, m, "folder", "f1")
	commitEntity(t, m, "file", "t1")

	if ent, err := m.RelatedNode(superuser, "mainfile", folder); ent != nil || err != nil {
		t.Error("Unexpected result:", ent, err)
		return
	}

	m.CreateRelationship(superuser, "mainfile", folder, "t1", nil)

	ent, err := m.RelatedNode(superuser, "mainfile", folder)
	if err != nil || ent == nil || ent.Key() != "t1" {
		t.Error("Unexpected result:", ent, err)
		return
	}

	// The related entity is committed and readable

	if ent.Dirty() {
		t.Error("Related entity should be committed")
		return
	}

	if val, _ := ent.GetProperty("size"); val != nil {
		t.Error("Unexpected value:", val)
		return
	}
}
