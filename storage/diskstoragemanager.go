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
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/krotik/common/fileutil"
)

func init() {

	// Make sure attribute maps survive a gob round trip

	gob.Register(make(map[string]interface{}))
	gob.Register(make(map[string]string))
}

/*
FileSuffixData is the file suffix for data files of disk storage managers.
*/
const FileSuffixData = ".dsm"

/*
DataFileExist checks if the data file for a disk storage manager exists.
*/
func DataFileExist(filename string) bool {
	res, _ := fileutil.PathExists(filename + FileSuffixData)
	return res
}

/*
DiskStorageManager is a storage Manager which persists its objects in a
single gob encoded data file. Journalled mutations live in memory and are
written out as a whole on Flush.
*/
type DiskStorageManager struct {
	name     string                  // Name of the storage manager
	filename string                  // Name of the data file
	data     map[string]interface{}  // Map of committed data
	journal  map[string]journalEntry // Journal of uncommitted mutations
	mutex    *sync.Mutex             // Mutex to protect map operations
	closed   bool                    // Flag if this manager has been closed
}

/*
NewDiskStorageManager creates a new DiskStorageManager instance. An existing
data file is loaded.
*/
func NewDiskStorageManager(filename string) (*DiskStorageManager, error) {
	data := make(map[string]interface{})

	if DataFileExist(filename) {
		file, err := os.Open(filename + FileSuffixData)
		if err != nil {
			return nil, &ManagerError{ErrReadError, err.Error(), filename}
		}
		defer file.Close()

		if err := gob.NewDecoder(file).Decode(&data); err != nil {
			return nil, &ManagerError{ErrReadError, err.Error(), filename}
		}
	}

	return &DiskStorageManager{filename, filename, data,
		make(map[string]journalEntry), &sync.Mutex{}, false}, nil
}

/*
Name returns the name of the DiskStorageManager instance.
*/
func (dsm *DiskStorageManager) Name() string {
	return dsm.name
}

/*
Put stores an object under a given key. The write is journalled and only
becomes visible after a Flush call. Storing a nil object removes the entry.
*/
func (dsm *DiskStorageManager) Put(key string, obj interface{}) error {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	if dsm.closed {
		return &ManagerError{ErrClosed, fmt.Sprint("Key:", key), dsm.name}
	}

	dsm.journal[key] = journalEntry{obj, obj == nil}

	return nil
}

/*
Get retrieves the object which is stored under a given key. Returns nil
if no object is stored under the key.
*/
func (dsm *DiskStorageManager) Get(key string) (interface{}, error) {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	if dsm.closed {
		return nil, &ManagerError{ErrClosed, fmt.Sprint("Key:", key), dsm.name}
	}

	if entry, ok := dsm.journal[key]; ok {
		if entry.remove {
			return nil, nil
		}
		return entry.obj, nil
	}

	return dsm.data[key], nil
}

/*
Remove removes an object under a given key. The removal is journalled and
only becomes effective after a Flush call.
*/
func (dsm *DiskStorageManager) Remove(key string) error {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	if dsm.closed {
		return &ManagerError{ErrClosed, fmt.Sprint("Key:", key), dsm.name}
	}

	dsm.journal[key] = journalEntry{nil, true}

	return nil
}

/*
Keys returns all keys which currently have an associated object.
*/
func (dsm *DiskStorageManager) Keys() ([]string, error) {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	if dsm.closed {
		return nil, &ManagerError{ErrClosed, "", dsm.name}
	}

	keys := make([]string, 0, len(dsm.data))

	for k := range dsm.data {
		if entry, ok := dsm.journal[k]; !ok || !entry.remove {
			keys = append(keys, k)
		}
	}

	for k, entry := range dsm.journal {
		if _, ok := dsm.data[k]; !ok && !entry.remove {
			keys = append(keys, k)
		}
	}

	return keys, nil
}

/*
Flush writes all journalled changes to the data file.
*/
func (dsm *DiskStorageManager) Flush() error {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	if dsm.closed {
		return &ManagerError{ErrClosed, "", dsm.name}
	}

	for k, entry := range dsm.journal {
		if entry.remove {
			delete(dsm.data, k)
		} else {
			dsm.data[k] = entry.obj
		}
	}

	dsm.journal = make(map[string]journalEntry)

	return dsm.writeData()
}

/*
Rollback discards all journalled changes.
*/
func (dsm *DiskStorageManager) Rollback() error {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	if dsm.closed {
		return &ManagerError{ErrClosed, "", dsm.name}
	}

	dsm.journal = make(map[string]journalEntry)

	return nil
}

/*
Close writes out all pending changes and closes the Manager.
*/
func (dsm *DiskStorageManager) Close() error {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	if dsm.closed {
		return &ManagerError{ErrClosed, "", dsm.name}
	}

	for k, entry := range dsm.journal {
		if entry.remove {
			delete(dsm.data, k)
		} else {
			dsm.data[k] = entry.obj
		}
	}

	dsm.journal = make(map[string]journalEntry)

	err := dsm.writeData()

	dsm.closed = true

	return err
}

/*
writeData writes the committed data to the data file. The data is written to
a temporary file first which then replaces the data file.
*/
func (dsm *DiskStorageManager) writeData() error {
	tempname := dsm.filename + FileSuffixData + ".tmp"

	file, err := os.Create(tempname)
	if err != nil {
		return &ManagerError{ErrWriteError, err.Error(), dsm.name}
	}

	err = gob.NewEncoder(file).Encode(dsm.data)

	file.Close()

	if err == nil {
		err = os.Rename(tempname, dsm.filename+FileSuffixData)
	}

	if err != nil {
		os.Remove(tempname)
		return &ManagerError{ErrWriteError, err.Error(), dsm.name}
	}

	return nil
}

/*
String returns a string representation of the storage manager.
*/
func (dsm *DiskStorageManager) String() string {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	return fmt.Sprintf("DiskStorageManager %v (%v entries, %v journalled)",
		dsm.name, len(dsm.data), len(dsm.journal))
}
