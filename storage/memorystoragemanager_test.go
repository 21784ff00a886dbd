/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package storage

import (
	"errors"
	"testing"
)

func TestMemoryStorageManager(t *testing.T) {
	msm := NewMemoryStorageManager("test")

	if msm.Name() != "test" {
		t.Error("Unexpected name:", msm.Name())
		return
	}

	// Journalled writes are visible through the same manager but only
	// committed after a flush

	if err := msm.Put("key1", "value1"); err != nil {
		t.Error(err)
		return
	}

	if res, _ := msm.Get("key1"); res != "value1" {
		t.Error("Unexpected result:", res)
		return
	}

	if len(msm.data) != 0 {
		t.Error("Nothing should have been committed yet")
		return
	}

	if err := msm.Flush(); err != nil {
		t.Error(err)
		return
	}

	if res := msm.data["key1"]; res != "value1" {
		t.Error("Unexpected committed value:", res)
		return
	}

	// Rollback discards journalled changes

	msm.Put("key1", "value2")
	msm.Put("key2", "value3")

	if err := msm.Rollback(); err != nil {
		t.Error(err)
		return
	}

	if res, _ := msm.Get("key1"); res != "value1" {
		t.Error("Unexpected result after rollback:", res)
		return
	}

	if res, _ := msm.Get("key2"); res != nil {
		t.Error("Unexpected result after rollback:", res)
		return
	}

	// Removal is visible before the flush and committed afterwards

	msm.Remove("key1")

	if res, _ := msm.Get("key1"); res != nil {
		t.Error("Unexpected result after remove:", res)
		return
	}

	msm.Flush()

	if len(msm.data) != 0 {
		t.Error("Unexpected committed state:", msm.data)
		return
	}
}

func TestMemoryStorageManagerKeys(t *testing.T) {
	msm := NewMemoryStorageManager("test")

	msm.Put("key1", "value1")
	msm.Flush()

	msm.Put("key2", "value2")
	msm.Remove("key1")

	keys, err := msm.Keys()
	if err != nil {
		t.Error(err)
		return
	}

	if len(keys) != 1 || keys[0] != "key2" {
		t.Error("Unexpected keys:", keys)
		return
	}
}

func TestMemoryStorageManagerAccessErrors(t *testing.T) {
	msm := NewMemoryStorageManager("test")

	msm.AccessMap["key1"] = AccessGetError
	msm.AccessMap["key2"] = AccessPutError
	msm.AccessMap["key3"] = AccessRemoveError

	if _, err := msm.Get("key1"); err == nil {
		t.Error("Get should have returned an error")
		return
	}

	if err := msm.Put("key2", "x"); err == nil {
		t.Error("Put should have returned an error")
		return
	}

	if err := msm.Remove("key3"); err == nil {
		t.Error("Remove should have returned an error")
		return
	}

	testerr := errors.New("testerror")

	MsmRetFlush = testerr
	defer func() { MsmRetFlush = nil }()

	if err := msm.Flush(); err != testerr {
		t.Error("Unexpected flush result:", err)
		return
	}
}
