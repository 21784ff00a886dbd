/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package storage contains the low-level transactional data stores which back
the graph layer.

Manager

A Manager provides a flat key-value store for gob-serializable objects.
Mutations are collected in a journal and only become visible to readers
once Flush is called. Rollback discards all journalled mutations. A
Manager is the unit of atomicity below a graph transaction - the graph
layer groups several managers and flushes or rolls back all of them
together.
*/
package storage

import (
	"errors"
	"fmt"
)

/*
Manager describes an object which can store and retrieve arbitrary objects
by key.
*/
type Manager interface {

	/*
	   Name returns the name of the Manager instance.
	*/
	Name() string

	/*
		Put stores an object under a given key. The write is journalled and
		only becomes visible after a Flush call. Storing a nil object removes
		the entry.
	*/
	Put(key string, obj interface{}) error

	/*
		Get retrieves the object which is stored under a given key. Journalled
		writes of the same Manager instance are visible to Get. Returns nil
		if no object is stored under the key.
	*/
	Get(key string) (interface{}, error)

	/*
	   Remove removes an object under a given key. The removal is journalled
	   and only becomes effective after a Flush call.
	*/
	Remove(key string) error

	/*
	   Keys returns all keys which currently have an associated object.
	*/
	Keys() ([]string, error)

	/*
	   Flush writes all journalled changes to the store.
	*/
	Flush() error

	/*
	   Rollback discards all journalled changes.
	*/
	Rollback() error

	/*
	   Close closes the Manager.
	*/
	Close() error
}

/*
ManagerError is a storage related error.
*/
type ManagerError struct {
	Type        error  // Error type (to be used for equal checks)
	Detail      string // Details of this error
	Managername string // Name of the storage manager which produced the error
}

/*
Error returns a human-readable string representation of this error.
*/
func (e *ManagerError) Error() string {
	return fmt.Sprintf("%v (%v - %v)", e.Type, e.Managername, e.Detail)
}

/*
Storage manager related error types
*/
var (
	ErrNotFound   = errors.New("Entry not found")
	ErrReadError  = errors.New("Could not read entry")
	ErrWriteError = errors.New("Could not write entry")
	ErrClosed     = errors.New("Storage manager is closed")
)
