/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package model

/*
Notion is a projection applied to a related entity when it is exposed
through a derived property.
*/
type Notion interface {

	/*
	   Project maps an entity to its exposed representation.
	*/
	Project(e *Entity) (interface{}, error)
}

/*
IdentityNotion projects an entity to its key.
*/
type IdentityNotion struct {
}

/*
Project maps an entity to its exposed representation.
*/
func (n *IdentityNotion) Project(e *Entity) (interface{}, error) {
	return e.Key(), nil
}

/*
ObjectNotion projects an entity to itself.
*/
type ObjectNotion struct {
}

/*
Project maps an entity to its exposed representation.
*/
func (n *ObjectNotion) Project(e *Entity) (interface{}, error) {
	return e, nil
}

/*
NotionSource builds an aggregation source which resolves the entities
related to a source entity through a registered relation and projects each
result through a notion. The result can be bound to an
convert.AggregateConverter.
*/
func (m *Manager) NotionSource(sec Principal, relName string, source *Entity,
	notion Notion) func() ([]interface{}, error) {

	return func() ([]interface{}, error) {

		ents, err := m.RelatedNodes(sec, relName, source)
		if err != nil {
			return nil, err
		}

		ret := make([]interface{}, 0, len(ents))

		for _, ent := range ents {
			val, err := notion.Project(ent)
			if err != nil {
				return nil, err
			}
			ret = append(ret, val)
		}

		return ret, nil
	}
}
