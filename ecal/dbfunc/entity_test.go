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
	"testing"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/weave/graph"
	"github.com/krotik/weave/graph/graphstorage"
	"github.com/krotik/weave/model"
	"github.com/krotik/weave/model/convert"
	"github.com/krotik/weave/render"
)

/*
newTestModelManager creates a model manager with a small test schema.
*/
func newTestModelManager() *model.Manager {
	mgs := graphstorage.NewMemoryGraphStorage("dbfunctest")
	gm := graph.NewGraphManager(mgs)

	reg := model.NewRegistry()

	errorutil.AssertOk(reg.RegisterKind("doc", nil,
		&model.Property{Name: "size", Converter: &convert.IntConverter{}},
		&model.Property{Name: "secret", Converter: &convert.PasswordConverter{}},
		&model.Property{Name: "checksum", Converter: &convert.IntConverter{}, ReadOnly: true}))

	errorutil.AssertOk(reg.RegisterRelation(&model.Relation{
		Name:        "refs",
		Kind:        "refs",
		SourceKind:  "doc",
		TargetKind:  "doc",
		SourceRole:  "origin",
		TargetRole:  "referenced",
		Direction:   model.Outgoing,
		Cardinality: model.ManyToMany,
		Properties: map[string]*model.Property{
			"weight": {Name: "weight", Converter: &convert.IntConverter{}},
		},
	}))

	errorutil.AssertOk(render.RegisterSchema(reg))

	return model.NewManager(gm, reg, "main")
}

func TestStoreAndFetchEntity(t *testing.T) {

	mm := newTestModelManager()

	se := &StoreEntityFunc{mm}

	if _, err := se.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := se.Run("", nil, nil, 0, []interface{}{""}); err == nil ||
		err.Error() != "Function requires 2 or 3 parameters: kind, a map of properties and optionally a key" {
		t.Error(err)
		return
	}

	if _, err := se.Run("", nil, nil, 0, []interface{}{"doc", "bla"}); err == nil ||
		err.Error() != "Second parameter must be a map" {
		t.Error(err)
		return
	}

	if _, err := se.Run("", nil, nil, 0, []interface{}{"unknownkind",
		map[interface{}]interface{}{}}); err == nil {
		t.Error("Unknown kind should not be accepted")
		return
	}

	res, err := se.Run("", nil, nil, 0, []interface{}{"doc", map[interface{}]interface{}{
		"name": "report",
		"size": "123",
	}, "doc1"})

	if err != nil || res != "doc1" {
		t.Error("Unexpected result:", res, err)
		return
	}

	fe := &FetchEntityFunc{mm}

	if _, err := fe.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := fe.Run("", nil, nil, 0, []interface{}{""}); err == nil ||
		err.Error() != "Function requires 2 parameters: kind and key" {
		t.Error(err)
		return
	}

	if _, err := fe.Run("", nil, nil, 0, []interface{}{"doc", "missing"}); err == nil ||
		err.Error() != "ModelError: Entity not found (doc missing)" {
		t.Error(err)
		return
	}

	res, err = fe.Run("", nil, nil, 0, []interface{}{"doc", "doc1"})

	if err != nil {
		t.Error(err)
		return
	}

	resMap := res.(map[interface{}]interface{})

	if resMap["name"] != "report" || fmt.Sprint(resMap["size"]) != "123" {
		t.Error("Unexpected result:", resMap)
		return
	}
}

func TestRelatedEntities(t *testing.T) {

	mm := newTestModelManager()

	se := &StoreEntityFunc{mm}

	if _, err := se.Run("", nil, nil, 0, []interface{}{"doc",
		map[interface{}]interface{}{"name": "a"}, "a"}); err != nil {
		t.Error(err)
		return
	}

	if _, err := se.Run("", nil, nil, 0, []interface{}{"doc",
		map[interface{}]interface{}{"name": "b"}, "b"}); err != nil {
		t.Error(err)
		return
	}

	a, err := mm.FetchEntity("doc", "a")
	errorutil.AssertOk(err)

	_, err = mm.CreateRelationship(scriptPrincipal, "refs", a, "b", nil)
	errorutil.AssertOk(err)

	rf := &RelatedFunc{mm}

	if _, err := rf.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := rf.Run("", nil, nil, 0, []interface{}{""}); err == nil ||
		err.Error() != "Function requires 3 parameters: relation name, kind and key" {
		t.Error(err)
		return
	}

	res, err := rf.Run("", nil, nil, 0, []interface{}{"refs", "doc", "a"})

	if err != nil {
		t.Error(err)
		return
	}

	resList := res.([]interface{})

	if len(resList) != 1 ||
		resList[0].(map[interface{}]interface{})["name"] != "b" {
		t.Error("Unexpected result:", resList)
		return
	}
}

func TestRenderPageFunc(t *testing.T) {

	mm := newTestModelManager()

	storeElement := func(key string, kind string, attrs map[interface{}]interface{}) {
		se := &StoreEntityFunc{mm}
		_, err := se.Run("", nil, nil, 0, []interface{}{kind, attrs, key})
		errorutil.AssertOk(err)
	}

	storeElement("page1", render.KindElement, map[interface{}]interface{}{
		"tag": "html",
	})
	storeElement("body1", render.KindElement, map[interface{}]interface{}{
		"tag": "body",
	})
	storeElement("text1", render.KindContent, map[interface{}]interface{}{
		"content": "Hello",
	})

	page, err := mm.FetchEntity(render.KindElement, "page1")
	errorutil.AssertOk(err)
	body, err := mm.FetchEntity(render.KindElement, "body1")
	errorutil.AssertOk(err)
	text, err := mm.FetchEntity(render.KindContent, "text1")
	errorutil.AssertOk(err)

	_, err = mm.CreateRelationship(scriptPrincipal, render.RelContains, page, body, nil)
	errorutil.AssertOk(err)
	_, err = mm.CreateRelationship(scriptPrincipal, render.RelContains, body, text, nil)
	errorutil.AssertOk(err)

	rp := &RenderPageFunc{mm}

	if _, err := rp.DocString(); err != nil {
		t.Error(err)
		return
	}

	if _, err := rp.Run("", nil, nil, 0, []interface{}{}); err == nil ||
		err.Error() != "Function requires 1 or 2 parameters: page key and optionally a render mode" {
		t.Error(err)
		return
	}

	if _, err := rp.Run("", nil, nil, 0, []interface{}{"page1", "x"}); err == nil ||
		err.Error() != "Render mode must be a number not: x" {
		t.Error(err)
		return
	}

	res, err := rp.Run("", nil, nil, 0, []interface{}{"page1"})

	if err != nil || res != "<html><body>Hello</body></html>" {
		t.Error("Unexpected result:", res, err)
		return
	}

	if _, err := rp.Run("", nil, nil, 0, []interface{}{"missing"}); err == nil {
		t.Error("Missing page should not render")
		return
	}
}
