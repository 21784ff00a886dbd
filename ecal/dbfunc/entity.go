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

	"github.com/krotik/ecal/parser"
	"github.com/krotik/ecal/scope"
	"github.com/krotik/weave/model"
)

/*
scriptPrincipal is the principal under which all script operations run. Scripts
are considered trusted code.
*/
var scriptPrincipal = model.NewPrincipal("scripting", "internal", true)

/*
StoreEntityFunc stores an entity in Weave.
*/
type StoreEntityFunc struct {
	MM *model.Manager
}

/*
Run executes the ECAL function.
*/
func (f *StoreEntityFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	var err error
	var key string

	if arglen := len(args); arglen != 2 && arglen != 3 {
		err = fmt.Errorf("Function requires 2 or 3 parameters: kind, a map of" +
			" properties and optionally a key")
	}

	if err == nil {
		var ent *model.Entity

		kind := fmt.Sprint(args[0])
		propMap, ok := args[1].(map[interface{}]interface{})

		// Check parameters

		if !ok {
			err = fmt.Errorf("Second parameter must be a map")
		}

		if err == nil && len(args) > 2 {
			key = fmt.Sprint(args[2])
		}

		// Create the entity and set its properties

		if err == nil {
			ent, err = f.MM.NewEntity(kind, key)
		}

		if err == nil {
			props := scope.ConvertECALToJSONObject(propMap).(map[string]interface{})

			for k, v := range props {
				if err == nil {
					err = ent.SetProperty(k, v)
				}
			}
		}

		if err == nil {
			if err = ent.Commit(nil); err == nil {
				return ent.Key(), nil
			}
		}
	}

	return nil, err
}

/*
DocString returns a descriptive string.
*/
func (f *StoreEntityFunc) DocString() (string, error) {
	return "Stores an entity in Weave and returns its key.", nil
}

/*
FetchEntityFunc fetches an entity from Weave.
*/
type FetchEntityFunc struct {
	MM *model.Manager
}

/*
Run executes the ECAL function.
*/
func (f *FetchEntityFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	var res interface{}
	var err error

	if arglen := len(args); arglen != 2 {
		err = fmt.Errorf("Function requires 2 parameters: kind and key")
	}

	if err == nil {
		var ent *model.Entity

		kind := fmt.Sprint(args[0])
		key := fmt.Sprint(args[1])

		if ent, err = f.MM.FetchEntity(kind, key); err == nil {
			res, err = entityToECALMap(f.MM, ent)
		}
	}

	return res, err
}

/*
DocString returns a descriptive string.
*/
func (f *FetchEntityFunc) DocString() (string, error) {
	return "Fetches an entity from Weave.", nil
}

/*
RelatedFunc looks up entities related to a given entity.
*/
type RelatedFunc struct {
	MM *model.Manager
}

/*
Run executes the ECAL function.
*/
func (f *RelatedFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	var res interface{}
	var err error

	if arglen := len(args); arglen != 3 {
		err = fmt.Errorf("Function requires 3 parameters: relation name, kind and key")
	}

	if err == nil {
		var ent *model.Entity
		var related []*model.Entity

		relName := fmt.Sprint(args[0])
		kind := fmt.Sprint(args[1])
		key := fmt.Sprint(args[2])

		if ent, err = f.MM.FetchEntity(kind, key); err == nil {
			related, err = f.MM.RelatedNodes(scriptPrincipal, relName, ent)
		}

		if err == nil {
			ret := []interface{}{}

			for _, r := range related {
				var m interface{}

				if m, err = entityToECALMap(f.MM, r); err != nil {
					break
				}

				ret = append(ret, m)
			}

			res = ret
		}
	}

	return res, err
}

/*
DocString returns a descriptive string.
*/
func (f *RelatedFunc) DocString() (string, error) {
	return "Looks up entities related to a given entity via a registered relation.", nil
}

/*
entityToECALMap returns the stored attributes of an entity as an ECAL object.
*/
func entityToECALMap(mm *model.Manager, ent *model.Entity) (interface{}, error) {
	node, err := mm.GraphManager().FetchNode(mm.Partition(), ent.Key(), ent.Kind())

	if err != nil || node == nil {
		return nil, err
	}

	return scope.ConvertJSONToECALObject(node.Data()), nil
}
