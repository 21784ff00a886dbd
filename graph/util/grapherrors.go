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
Package util contains utility classes for the graph layer.

GraphError

Models a graph related error. Low-level errors should be wrapped in a
GraphError before they are returned to a client.
*/
package util

import (
	"errors"
	"fmt"
)

/*
GraphError is a graph related error
*/
type GraphError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *GraphError) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Graph related error types
*/
var (
	ErrOpening         = errors.New("Failed to open graph storage")
	ErrClosing         = errors.New("Failed to close graph storage")
	ErrInvalidData     = errors.New("Invalid data")
	ErrReading         = errors.New("Could not read graph information")
	ErrWriting         = errors.New("Could not write graph information")
	ErrRule            = errors.New("Graph rule error")
	ErrAccessComponent = errors.New("Failed to access graph storage component")
	ErrFlushing        = errors.New("Failed to flush changes")
	ErrRollback        = errors.New("Failed to rollback changes")
)
