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
	"github.com/krotik/weave/model"
	"github.com/krotik/weave/render"
)

/*
RenderPageFunc renders a page element tree to markup.
*/
type RenderPageFunc struct {
	MM *model.Manager
}

/*
Run executes the ECAL function.
*/
func (f *RenderPageFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	var res interface{}
	var err error

	if arglen := len(args); arglen != 1 && arglen != 2 {
		err = fmt.Errorf("Function requires 1 or 2 parameters: page key and" +
			" optionally a render mode")
	}

	if err == nil {
		mode := render.ModeNone

		key := fmt.Sprint(args[0])

		if len(args) > 1 {
			if mode, err = strconv.Atoi(fmt.Sprint(args[1])); err != nil {
				err = fmt.Errorf("Render mode must be a number not: %v", args[1])
			}
		}

		if err == nil {
			ctx := render.NewContext(f.MM, scriptPrincipal, mode)
			res, err = ctx.RenderPage(key)
		}
	}

	return res, err
}

/*
DocString returns a descriptive string.
*/
func (f *RenderPageFunc) DocString() (string, error) {
	return "Renders a page element tree to markup.", nil
}
