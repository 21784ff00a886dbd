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

import (
	"strconv"
)

/*
IsVisible checks if an entity is visible to a principal at a given point
in time (epoch millis). The hidden flag wins absolutely. Otherwise the
entity is visible only if now falls inside its visibility window and the
principal class matches: the anonymous principal sees public entities,
authenticated principals see entities flagged visible to authenticated
users. A superuser sees everything.
*/
func (m *Manager) IsVisible(sec Principal, e *Entity, now int64) bool {

	if sec != nil && sec.IsSuperuser() {
		return true
	}

	if m.attrFlag(e, AttrHidden) {
		return false
	}

	start, end := m.visibilityWindow(e)

	if now < start || (end > 0 && now >= end) {
		return false
	}

	if sec == nil {
		return m.attrFlag(e, AttrPublic)
	}

	return m.attrFlag(e, AttrVisibleAuth)
}

/*
visibilityWindow computes the visibility time window of an entity. The
window starts at the explicit start attribute or at the creation timestamp
(never before the epoch) and ends at the explicit end attribute or never
(returned as 0).
*/
func (m *Manager) visibilityWindow(e *Entity) (int64, int64) {
	var start, end int64

	if val, _ := e.storedValue(AttrVisibleStart); val != nil {
		start = storedMillis(val)
	} else if val, _ := e.storedValue(AttrCreated); val != nil {
		start = storedMillis(val)
	}

	if start < 0 {
		start = 0
	}

	if val, _ := e.storedValue(AttrVisibleEnd); val != nil {
		end = storedMillis(val)
	}

	return start, end
}

/*
attrFlag reads a stored attribute as a boolean flag.
*/
func (m *Manager) attrFlag(e *Entity, attr string) bool {

	val, _ := e.storedValue(attr)

	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1" || v == "on"
	}

	return false
}

/*
storedMillis reads a stored value as epoch millis. Timestamps are stored
either as int64 values or as decimal strings.
*/
func storedMillis(val interface{}) int64 {

	switch v := val.(type) {

	case int64:
		return v

	case string:
		if millis, err := strconv.ParseInt(v, 10, 64); err == nil {
			return millis
		}
	}

	return 0
}
