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
Package convert contains property converters for the entity layer.

A Converter transforms property values between their domain representation
(what callers of the entity layer see) and their stored representation (what
is written to the graph). Converters are stateless and must tolerate nil
values in both directions. Read-only converters return ErrReadOnly from
ForSetter - they compute derived values and can never be written.
*/
package convert

import (
	"errors"
	"fmt"
)

/*
Converter transforms property values between domain and stored representation.
*/
type Converter interface {

	/*
	   ForSetter converts a domain value into its stored representation.
	*/
	ForSetter(domain interface{}) (interface{}, error)

	/*
	   ForGetter converts a stored value into its domain representation.
	*/
	ForGetter(stored interface{}) (interface{}, error)

	/*
		ForSorting converts a stored value into a representation which can
		be used for sort ordering.
	*/
	ForSorting(stored interface{}) interface{}
}

/*
Converter related error types
*/
var (
	ErrReadOnly     = errors.New("Converter is read-only")
	ErrInvalidValue = errors.New("Invalid value")
)

/*
ConversionError is a property conversion related error.
*/
type ConversionError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ce *ConversionError) Error() string {
	if ce.Detail != "" {
		return fmt.Sprintf("ConversionError: %v (%v)", ce.Type, ce.Detail)
	}

	return fmt.Sprintf("ConversionError: %v", ce.Type)
}

/*
defaultForSorting is the default sorting projection. Values which can be
compared directly are passed through, everything else is projected to its
string form.
*/
func defaultForSorting(stored interface{}) interface{} {
	switch stored.(type) {
	case nil, string, int, int64, uint64, float64:
		return stored
	}

	return fmt.Sprint(stored)
}
