/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package render

import (
	"sort"

	"github.com/krotik/weave/model"
)

/*
maxPathDepth bounds the upward walk when resolving page paths.
*/
const maxPathDepth = 64

/*
PagePaths resolves the page path(s) of an element by walking contains
relationships towards the roots. Every root reached yields one path of
slash separated element names. The walk uses a worklist with a visited set
and bounded depth, cyclic contains graphs terminate and contribute no
path through the cycle.
*/
func PagePaths(mgr *model.Manager, sec model.Principal, ent *model.Entity) ([]string, error) {

	type item struct {
		key  string
		kind string
		path string
	}

	gm := mgr.GraphManager()
	part := mgr.Partition()

	var ret []string

	visited := make(map[string]bool)
	frontier := []item{{ent.Key(), ent.Kind(), pathName(ent)}}

	for depth := 0; len(frontier) > 0 && depth <= maxPathDepth; depth++ {

		var next []item

		for _, it := range frontier {

			id := it.kind + "#" + it.key

			if visited[id] {
				continue
			}
			visited[id] = true

			// Follow contains edges upwards, this node plays the child role

			nodes, _, err := gm.TraverseMulti(part, it.key, it.kind,
				"child:"+RelContains+"::", true)
			if err != nil {
				return nil, err
			}

			if len(nodes) == 0 {

				// A root was reached, the accumulated path is complete

				ret = append(ret, "/"+it.path)
				continue
			}

			for _, parent := range nodes {

				name := parent.Key()
				if n, ok := parent.Attr(AttrName).(string); ok && n != "" {
					name = n
				}

				next = append(next, item{parent.Key(), parent.Kind(),
					name + "/" + it.path})
			}
		}

		frontier = next
	}

	sort.StringSlice(ret).Sort()

	return ret, nil
}

/*
pathName returns the path segment name of an entity.
*/
func pathName(ent *model.Entity) string {

	if name := ent.Str(AttrName); name != "" {
		return name
	}

	return ent.Key()
}
