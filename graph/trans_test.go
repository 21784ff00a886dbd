/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"strings"
	"testing"

	"github.com/krotik/weave/graph/data"
	"github.com/krotik/weave/graph/graphstorage"
	"github.com/krotik/weave/storage"
)

func TestTransSimple(t *testing.T) {
	mgs := graphstorage.NewMemoryGraphStorage("mystorage")
	gm := NewGraphManager(mgs)

	trans := NewGraphTrans(gm)

	if trans.ID() == "" {
		t.Error("Transaction should have an id")
		return
	}

	if !trans.IsEmpty() {
		t.Error("Fresh transaction should be empty")
		return
	}

	node1 := data.NewGraphNode()
	node1.SetAttr("key", "123")
	node1.SetAttr("kind", "mynode")
	node1.SetAttr("Name", "Node1")

	node2 := data.NewGraphNode()
	node2.SetAttr("key", "456")
	node2.SetAttr("kind", "mynode")
	node2.SetAttr("Name", "Node2")

	if err := trans.StoreNode("main", node1); err != nil {
		t.Error(err)
		return
	}
	if err := trans.StoreNode("main", node2); err != nil {
		t.Error(err)
		return
	}

	edge := data.NewGraphEdgeBetween("abc", "myedge", "node1", node1, "node2", node2, false)

	if err := trans.StoreEdge("main", edge); err != nil {
		t.Error(err)
		return
	}

	sn, se, rn, re := trans.Counts()
	if sn != 2 || se != 1 || rn != 0 || re != 0 {
		t.Error("Unexpected counts:", sn, se, rn, re)
		return
	}

	if !strings.HasPrefix(trans.String(), "Transaction") {
		t.Error("Unexpected string representation:", trans.String())
		return
	}

	// Nothing should be written before the commit

	if cnt := gm.NodeCount("mynode"); cnt != 0 {
		t.Error("Unexpected node count:", cnt)
		return
	}

	if err := trans.Commit(); err != nil {
		t.Error(err)
		return
	}

	if !trans.IsEmpty() {
		t.Error("Committed transaction should be empty")
		return
	}

	if cnt := gm.NodeCount("mynode"); cnt != 2 {
		t.Error("Unexpected node count:", cnt)
		return
	}

	if cnt := gm.EdgeCount("myedge"); cnt != 1 {
		t.Error("Unexpected edge count:", cnt)
		return
	}

	// Remove everything in a second transaction

	trans = NewGraphTrans(gm)

	if err := trans.RemoveEdge("main", "abc", "myedge"); err != nil {
		t.Error(err)
		return
	}
	if err := trans.RemoveNode("main", "123", "mynode"); err != nil {
		t.Error(err)
		return
	}
	if err := trans.RemoveNode("main", "456", "mynode"); err != nil {
		t.Error(err)
		return
	}

	if err := trans.Commit(); err != nil {
		t.Error(err)
		return
	}

	if cnt := gm.NodeCount("mynode"); cnt != 0 {
		t.Error("Unexpected node count:", cnt)
		return
	}

	if cnt := gm.EdgeCount("myedge"); cnt != 0 {
		t.Error("Unexpected edge count:", cnt)
		return
	}
}

func TestTransUpdateNode(t *testing.T) {
	mgs := graphstorage.NewMemoryGraphStorage("mystorage")
	gm := NewGraphManager(mgs)

	node1 := data.NewGraphNode()
	node1.SetAttr("key", "123")
	node1.SetAttr("kind", "mynode")
	node1.SetAttr("Name", "Node1")
	node1.SetAttr("Detail", "something")

	if err := gm.StoreNode("main", node1); err != nil {
		t.Error(err)
		return
	}

	trans := NewGraphTrans(gm)

	update := data.NewGraphNode()
	update.SetAttr("key", "123")
	update.SetAttr("kind", "mynode")
	update.SetAttr("Name", "Node1Changed")

	if err := trans.UpdateNode("main", update); err != nil {
		t.Error(err)
		return
	}

	if err := trans.Commit(); err != nil {
		t.Error(err)
		return
	}

	fetchedNode, err := gm.FetchNode("main", "123", "mynode")
	if err != nil {
		t.Error(err)
		return
	}

	if fetchedNode.Attr("Name") != "Node1Changed" || fetchedNode.Attr("Detail") != "something" {
		t.Error("Unexpected node data:", fetchedNode)
		return
	}
}

func TestTransRollback(t *testing.T) {
	mgs := graphstorage.NewMemoryGraphStorage("mystorage")
	gm := NewGraphManager(mgs)

	node1 := data.NewGraphNode()
	node1.SetAttr("key", "123")
	node1.SetAttr("kind", "mynode")

	if err := gm.StoreNode("main", node1); err != nil {
		t.Error(err)
		return
	}

	trans := NewGraphTrans(gm)

	node2 := data.NewGraphNode()
	node2.SetAttr("key", "456")
	node2.SetAttr("kind", "mynode")

	if err := trans.StoreNode("main", node2); err != nil {
		t.Error(err)
		return
	}

	// An edge to a non-existing endpoint should fail the whole commit

	node3 := data.NewGraphNode()
	node3.SetAttr("key", "789")
	node3.SetAttr("kind", "mynode")

	edge := data.NewGraphEdgeBetween("abc", "myedge", "node1", node1, "node2", node3, false)

	if err := trans.StoreEdge("main", edge); err != nil {
		t.Error(err)
		return
	}

	if err := trans.Commit(); err == nil {
		t.Error("Commit with an invalid edge should fail")
		return
	}

	// The failed transaction should have been rolled back

	if !trans.IsEmpty() {
		t.Error("Failed transaction should be empty")
		return
	}

	fetchedNode, err := gm.FetchNode("main", "456", "mynode")
	if err != nil || fetchedNode != nil {
		t.Error("Node of failed transaction should not exist:", fetchedNode, err)
		return
	}

	// The previously committed node should still be there

	fetchedNode, err = gm.FetchNode("main", "123", "mynode")
	if err != nil || fetchedNode == nil {
		t.Error("Previously committed node should still exist:", fetchedNode, err)
		return
	}
}

func TestTransStoreRemoveInterplay(t *testing.T) {
	mgs := graphstorage.NewMemoryGraphStorage("mystorage")
	gm := NewGraphManager(mgs)

	trans := newInternalGraphTrans(gm)

	node := data.NewGraphNode()
	node.SetAttr("key", "123")
	node.SetAttr("kind", "mynode")

	// Removing a stored node within the same transaction cancels the store

	trans.StoreNode("main", node)
	trans.RemoveNode("main", "123", "mynode")

	sn, _, rn, _ := trans.Counts()
	if sn != 0 || rn != 1 {
		t.Error("Unexpected counts:", sn, rn)
		return
	}

	// Storing a removed node cancels the removal

	trans.StoreNode("main", node)

	sn, _, rn, _ = trans.Counts()
	if sn != 1 || rn != 0 {
		t.Error("Unexpected counts:", sn, rn)
		return
	}

	if err := trans.Commit(); err != nil {
		t.Error(err)
		return
	}

	if cnt := gm.NodeCount("mynode"); cnt != 1 {
		t.Error("Unexpected node count:", cnt)
		return
	}
}

func TestConcurrentTrans(t *testing.T) {
	mgs := graphstorage.NewMemoryGraphStorage("mystorage")
	gm := NewGraphManager(mgs)

	trans := NewConcurrentGraphTrans(gm)

	errs := make(chan error, 10)

	for i := 0; i < 10; i++ {
		go func(i int) {
			node := data.NewGraphNode()
			node.SetAttr("key", string(rune('a'+i)))
			node.SetAttr("kind", "mynode")

			errs <- trans.StoreNode("main", node)
		}(i)
	}

	for i := 0; i < 10; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
			return
		}
	}

	if err := trans.Commit(); err != nil {
		t.Error(err)
		return
	}

	if cnt := gm.NodeCount("mynode"); cnt != 10 {
		t.Error("Unexpected node count:", cnt)
		return
	}
}

func TestRollingTrans(t *testing.T) {
	mgs := graphstorage.NewMemoryGraphStorage("mystorage")
	gm := NewGraphManager(mgs)

	trans := NewRollingTrans(NewConcurrentGraphTrans(gm), 2, gm,
		NewConcurrentGraphTrans)

	if !strings.HasPrefix(trans.String(), "Rolling transaction") {
		t.Error("Unexpected string representation:", trans.String())
		return
	}

	for i := 0; i < 5; i++ {
		node := data.NewGraphNode()
		node.SetAttr("key", string(rune('a'+i)))
		node.SetAttr("kind", "mynode")

		if err := trans.StoreNode("main", node); err != nil {
			t.Error(err)
			return
		}
	}

	if err := trans.Commit(); err != nil {
		t.Error(err)
		return
	}

	if !trans.IsEmpty() {
		t.Error("Committed transaction should be empty")
		return
	}

	if cnt := gm.NodeCount("mynode"); cnt != 5 {
		t.Error("Unexpected node count:", cnt)
		return
	}
}

func TestTransStorageErrors(t *testing.T) {
	mgs := graphstorage.NewMemoryGraphStorage("mystorage")
	gm := NewGraphManager(mgs)

	node := data.NewGraphNode()
	node.SetAttr("key", "123")
	node.SetAttr("kind", "mynode")

	if err := gm.StoreNode("main", node); err != nil {
		t.Error(err)
		return
	}

	sm := mgs.StorageManager("main"+"mynode"+StorageSuffixNodes,
		false).(*storage.MemoryStorageManager)

	sm.AccessMap[PrefixNodeAttrs+"456"] = storage.AccessPutError

	trans := NewGraphTrans(gm)

	node2 := data.NewGraphNode()
	node2.SetAttr("key", "456")
	node2.SetAttr("kind", "mynode")

	if err := trans.StoreNode("main", node2); err != nil {
		t.Error(err)
		return
	}

	if err := trans.Commit(); err == nil {
		t.Error("Commit with a storage error should fail")
		return
	}

	delete(sm.AccessMap, PrefixNodeAttrs+"456")

	// The datastore should be unchanged

	if cnt := gm.NodeCount("mynode"); cnt != 1 {
		t.Error("Unexpected node count:", cnt)
		return
	}
}
