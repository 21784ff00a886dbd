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

import "sort"

/*
AggregateConverter is a read-only converter which computes a derived list
of values. The bound source functions are unioned in order, the optional
Less function sorts the combined result.
*/
type AggregateConverter struct {
	Sources []func() ([]interface{}, error)        // Source functions to union
	Less    func(v1 interface{}, v2 interface{}) bool // Optional sort order
}

/*
ForSetter returns ErrReadOnly - aggregated values cannot be written.
*/
func (ac *AggregateConverter) ForSetter(domain interface{}) (interface{}, error) {
	return nil, &ConversionError{ErrReadOnly, "Aggregated values cannot be written"}
}

/*
ForGetter computes the aggregated value list. The stored value is ignored.
*/
func (ac *AggregateConverter) ForGetter(stored interface{}) (interface{}, error) {
	var res []interface{}

	for _, source := range ac.Sources {
		vals, err := source()
		if err != nil {
			return nil, err
		}

		res = append(res, vals...)
	}

	if ac.Less != nil {
		sort.SliceStable(res, func(i, j int) bool {
			return ac.Less(res[i], res[j])
		})
	}

	return res, nil
}

/*
ForSorting converts a stored value into a sortable representation.
*/
func (ac *AggregateConverter) ForSorting(stored interface{}) interface{} {
	return defaultForSorting(stored)
}

/*
QueryConverter is a read-only converter which computes its value by running
a bound lookup function against the graph.
*/
type QueryConverter struct {
	Query func() (interface{}, error) // Bound lookup function
}

/*
ForSetter returns ErrReadOnly - query results cannot be written.
*/
func (qc *QueryConverter) ForSetter(domain interface{}) (interface{}, error) {
	return nil, &ConversionError{ErrReadOnly, "Query results cannot be written"}
}

/*
ForGetter runs the bound lookup function. The stored value is ignored.
*/
func (qc *QueryConverter) ForGetter(stored interface{}) (interface{}, error) {
	return qc.Query()
}

/*
ForSorting converts a stored value into a sortable representation.
*/
func (qc *QueryConverter) ForSorting(stored interface{}) interface{} {
	return defaultForSorting(stored)
}
