/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package convert

import (
	"crypto/sha512"
	"fmt"
	"strconv"

	"github.com/krotik/common/logutil"
)

/*
Logger for conversion failures
*/
var log = logutil.GetLogger("weave.convert")

// Bool converter
// ==============

/*
BoolConverter converts between stored string flags and booleans. The stored
values "true", "1" and "on" map to true, any other non-nil value maps to
false.
*/
type BoolConverter struct {
}

/*
ForSetter converts a domain value into its stored representation.
*/
func (bc *BoolConverter) ForSetter(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	if b, ok := domain.(bool); ok {
		return fmt.Sprint(b), nil
	}

	return fmt.Sprint(domain), nil
}

/*
ForGetter converts a stored value into its domain representation.
*/
func (bc *BoolConverter) ForGetter(stored interface{}) (interface{}, error) {
	if stored == nil {
		return nil, nil
	}

	s := fmt.Sprint(stored)

	return s == "true" || s == "1" || s == "on", nil
}

/*
ForSorting converts a stored value into a sortable representation.
*/
func (bc *BoolConverter) ForSorting(stored interface{}) interface{} {
	return defaultForSorting(stored)
}

// Int converter
// =============

/*
IntConverter converts between stored values and integers. Unparseable
values are logged and read back as nil.
*/
type IntConverter struct {
}

/*
ForSetter converts a domain value into its stored representation.
*/
func (ic *IntConverter) ForSetter(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	switch v := domain.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		res, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &ConversionError{ErrInvalidValue,
				fmt.Sprintf("Not an integer: %v", v)}
		}
		return res, nil
	}

	return nil, &ConversionError{ErrInvalidValue,
		fmt.Sprintf("Not an integer: %v", domain)}
}

/*
ForGetter converts a stored value into its domain representation.
*/
func (ic *IntConverter) ForGetter(stored interface{}) (interface{}, error) {
	if stored == nil {
		return nil, nil
	}

	switch v := stored.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		res, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Warning("Could not read stored integer: ", v)
			return nil, nil
		}
		return res, nil
	}

	log.Warning("Could not read stored integer: ", stored)

	return nil, nil
}

/*
ForSorting converts a stored value into a sortable representation.
*/
func (ic *IntConverter) ForSorting(stored interface{}) interface{} {
	return defaultForSorting(stored)
}

// Float converter
// ===============

/*
FloatConverter converts between stored values and floating point numbers.
Unparseable values are logged and read back as nil.
*/
type FloatConverter struct {
}

/*
ForSetter converts a domain value into its stored representation.
*/
func (fc *FloatConverter) ForSetter(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	switch v := domain.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		res, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &ConversionError{ErrInvalidValue,
				fmt.Sprintf("Not a number: %v", v)}
		}
		return res, nil
	}

	return nil, &ConversionError{ErrInvalidValue,
		fmt.Sprintf("Not a number: %v", domain)}
}

/*
ForGetter converts a stored value into its domain representation.
*/
func (fc *FloatConverter) ForGetter(stored interface{}) (interface{}, error) {
	if stored == nil {
		return nil, nil
	}

	switch v := stored.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		res, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log.Warning("Could not read stored number: ", v)
			return nil, nil
		}
		return res, nil
	}

	log.Warning("Could not read stored number: ", stored)

	return nil, nil
}

/*
ForSorting converts a stored value into a sortable representation.
*/
func (fc *FloatConverter) ForSorting(stored interface{}) interface{} {
	return defaultForSorting(stored)
}

// Password converter
// ==================

/*
PasswordConverter is a one-way converter for password values. Writing
stores a SHA-512 hex digest of the cleartext, reading always yields nil
so the digest is never exposed as the password.
*/
type PasswordConverter struct {
}

/*
ForSetter converts a domain value into its stored representation.
*/
func (pc *PasswordConverter) ForSetter(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	digest := sha512.Sum512([]byte(fmt.Sprint(domain)))

	return fmt.Sprintf("%x", digest), nil
}

/*
ForGetter converts a stored value into its domain representation. Always
returns nil.
*/
func (pc *PasswordConverter) ForGetter(stored interface{}) (interface{}, error) {
	return nil, nil
}

/*
ForSorting converts a stored value into a sortable representation.
*/
func (pc *PasswordConverter) ForSorting(stored interface{}) interface{} {
	return defaultForSorting(stored)
}

// Enum converter
// ==============

/*
EnumConverter converts between stored names and a bound set of valid
values. Unknown names are rejected with ErrInvalidValue.
*/
type EnumConverter struct {
	Values []string // Valid values of this enum
}

/*
NewEnumConverter creates a new EnumConverter instance for a set of valid
values.
*/
func NewEnumConverter(values ...string) *EnumConverter {
	return &EnumConverter{values}
}

/*
validate checks a value against the bound value set.
*/
func (ec *EnumConverter) validate(val string) error {
	for _, v := range ec.Values {
		if v == val {
			return nil
		}
	}

	return &ConversionError{ErrInvalidValue,
		fmt.Sprintf("Invalid enum value: %v", val)}
}

/*
ForSetter converts a domain value into its stored representation.
*/
func (ec *EnumConverter) ForSetter(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	val := fmt.Sprint(domain)

	if err := ec.validate(val); err != nil {
		return nil, err
	}

	return val, nil
}

/*
ForGetter converts a stored value into its domain representation.
*/
func (ec *EnumConverter) ForGetter(stored interface{}) (interface{}, error) {
	if stored == nil {
		return nil, nil
	}

	val := fmt.Sprint(stored)

	if err := ec.validate(val); err != nil {
		return nil, err
	}

	return val, nil
}

/*
ForSorting converts a stored value into a sortable representation.
*/
func (ec *EnumConverter) ForSorting(stored interface{}) interface{} {
	return defaultForSorting(stored)
}
