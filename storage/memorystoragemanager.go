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
	"fmt"
	"sync"
)

/*
AccessNormal does not simulate any access error
*/
const AccessNormal = 0

/*
AccessGetError simulates an access error on Get for a given key
*/
const AccessGetError = 1

/*
AccessPutError simulates an access error on Put for a given key
*/
const AccessPutError = 2

/*
AccessRemoveError simulates an access error on Remove for a given key
*/
const AccessRemoveError = 3

/*
Return values for Flush, Rollback and Close calls
*/
var MsmRetFlush, MsmRetRollback, MsmRetClose error

/*
journalEntry is a single journalled (uncommitted) mutation.
*/
type journalEntry struct {
	obj    interface{} // Object which should be stored
	remove bool        // Flag if the entry should be removed
}

/*
MemoryStorageManager data structure
*/
type MemoryStorageManager struct {
	name    string                  // Name of the storage manager
	data    map[string]interface{}  // Map of committed data
	journal map[string]journalEntry // Journal of uncommitted mutations
	mutex   *sync.Mutex             // Mutex to protect map operations

	AccessMap map[string]int // Special map to simulate access issues
}

/*
NewMemoryStorageManager creates a new MemoryStorageManager instance.
*/
func NewMemoryStorageManager(name string) *MemoryStorageManager {
	return &MemoryStorageManager{name, make(map[string]interface{}),
		make(map[string]journalEntry), &sync.Mutex{}, make(map[string]int)}
}

/*
Name returns the name of the MemoryStorageManager instance.
*/
func (msm *MemoryStorageManager) Name() string {
	return msm.name
}

/*
Put stores an object under a given key. The write is journalled and only
becomes visible after a Flush call. Storing a nil object removes the entry.
*/
func (msm *MemoryStorageManager) Put(key string, obj interface{}) error {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if msm.AccessMap[key] == AccessPutError {
		return &ManagerError{ErrWriteError, fmt.Sprint("Key:", key), msm.name}
	}

	msm.journal[key] = journalEntry{obj, obj == nil}

	return nil
}

/*
Get retrieves the object which is stored under a given key. Returns nil
if no object is stored under the key.
*/
func (msm *MemoryStorageManager) Get(key string) (interface{}, error) {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if msm.AccessMap[key] == AccessGetError {
		return nil, &ManagerError{ErrReadError, fmt.Sprint("Key:", key), msm.name}
	}

	if entry, ok := msm.journal[key]; ok {
		if entry.remove {
			return nil, nil
		}
		return entry.obj, nil
	}

	return msm.data[key], nil
}

/*
Remove removes an object under a given key. The removal is journalled and
only becomes effective after a Flush call.
*/
func (msm *MemoryStorageManager) Remove(key string) error {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if msm.AccessMap[key] == AccessRemoveError {
		return &ManagerError{ErrWriteError, fmt.Sprint("Key:", key), msm.name}
	}

	msm.journal[key] = journalEntry{nil, true}

	return nil
}

/*
Keys returns all keys which currently have an associated object.
*/
func (msm *MemoryStorageManager) Keys() ([]string, error) {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	keys := make([]string, 0, len(msm.data))

	for k := range msm.data {
		if entry, ok := msm.journal[k]; !ok || !entry.remove {
			keys = append(keys, k)
		}
	}

	for k, entry := range msm.journal {
		if _, ok := msm.data[k]; !ok && !entry.remove {
			keys = append(keys, k)
		}
	}

	return keys, nil
}

/*
Flush writes all journalled changes to the store.
*/
func (msm *MemoryStorageManager) Flush() error {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if MsmRetFlush != nil {
		return MsmRetFlush
	}

	for k, entry := range msm.journal {
		if entry.remove {
			delete(msm.data, k)
		} else {
			msm.data[k] = entry.obj
		}
	}

	msm.journal = make(map[string]journalEntry)

	return nil
}

/*
Rollback discards all journalled changes.
*/
func (msm *MemoryStorageManager) Rollback() error {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if MsmRetRollback != nil {
		return MsmRetRollback
	}

	msm.journal = make(map[string]journalEntry)

	return nil
}

/*
Close closes the Manager.
*/
func (msm *MemoryStorageManager) Close() error {
	return MsmRetClose
}

/*
String returns a string representation of the storage manager.
*/
func (msm *MemoryStorageManager) String() string {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	return fmt.Sprintf("MemoryStorageManager %v (%v entries, %v journalled)",
		msm.name, len(msm.data), len(msm.journal))
}
