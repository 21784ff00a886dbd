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
	"strconv"

	"github.com/krotik/ecal/parser"
	"github.com/krotik/weave/graph"
)

/*
NewTransFunc creates a new transaction for Weave.
*/
type NewTransFunc struct {
	GM *graph.Manager
}

/*
Run executes the ECAL function.
*/
func (f *NewTransFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	if len(args) != 0 {
		return nil, fmt.Errorf("Function does not require any parameters")
	}

	return graph.NewConcurrentGraphTrans(f.GM), nil
}

/*
DocString returns a descriptive string.
*/
func (f *NewTransFunc) DocString() (string, error) {
	return "Creates a new transaction for Weave.", nil
}

/*
NewRollingTransFunc creates a new rolling transaction for Weave.
A rolling transaction commits after n entries.
*/
type NewRollingTransFunc struct {
	GM *graph.Manager
}

/*
Run executes the ECAL function.
*/
func (f *NewRollingTransFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	if arglen := len(args); arglen != 1 {
		return nil, fmt.Errorf(
			"Function requires the rolling threshold (number of operations before rolling)")
	}

	i, err := strconv.Atoi(fmt.Sprint(args[0]))
	if err != nil {
		return nil, fmt.Errorf("Rolling threshold must be a number not: %v", args[0])
	}

	return graph.NewRollingTrans(graph.NewConcurrentGraphTrans(f.GM),
		i, f.GM, graph.NewConcurrentGraphTrans), nil
}

/*
DocString returns a descriptive string.
*/
func (f *NewRollingTransFunc) DocString() (string, error) {
	return "Creates a new rolling transaction for Weave. A rolling transaction commits after n entries.", nil
}

/*
CommitTransFunc commits an existing transaction for Weave.
*/
type CommitTransFunc struct {
	GM *graph.Manager
}

/*
Run executes the ECAL function.
*/
func (f *CommitTransFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {

	if arglen := len(args); arglen != 1 {
		return nil, fmt.Errorf(
			"Function requires the transaction to commit as parameter")
	}

	trans, ok := args[0].(graph.Trans)
	if !ok {
		return nil, fmt.Errorf("Parameter must be a transaction")
	}

	return nil, trans.Commit()
}

/*
DocString returns a descriptive string.
*/
func (f *CommitTransFunc) DocString() (string, error) {
	return "Commits an existing transaction for Weave.", nil
}
