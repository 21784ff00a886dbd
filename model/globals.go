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
Package model contains the entity layer of Weave.

The entity layer sits on top of the graph substrate and adds a schema
registry, typed property access through converters, relationship
cardinality enforcement, permissions and visibility. Entities are
in-memory wrappers around graph nodes with a dirty / committed state
machine. Entity instances are not safe for concurrent use, each request
must operate on its own freshly loaded instances.
*/
package model

import (
	"errors"
	"fmt"

	"github.com/krotik/common/logutil"
)

/*
Logger for the entity layer
*/
var log = logutil.GetLogger("weave.model")

// System attributes
// =================

/*
AttrCreated is the attribute holding the creation timestamp (epoch millis
as string) of an entity. Written once on commit.
*/
const AttrCreated = "created"

/*
AttrModified is the attribute holding the last modification timestamp
(epoch millis as string) of an entity. Written as a side effect of any
successful property write, never directly.
*/
const AttrModified = "modified"

/*
AttrStorageID is the attribute holding the numeric storage identifier
which is assigned to an entity on commit.
*/
const AttrStorageID = "storageid"

/*
AttrOwner is the attribute holding the name of the owning principal.
*/
const AttrOwner = "owner"

/*
AttrHidden is the attribute flagging an entity as hidden. A hidden entity
is never visible regardless of any other visibility setting.
*/
const AttrHidden = "hidden"

/*
AttrPublic is the attribute flagging an entity as visible to anonymous
principals.
*/
const AttrPublic = "public"

/*
AttrVisibleAuth is the attribute flagging an entity as visible to
authenticated principals.
*/
const AttrVisibleAuth = "visibletoauth"

/*
AttrVisibleStart is the attribute holding the start (epoch millis) of the
visibility window of an entity.
*/
const AttrVisibleStart = "visiblestart"

/*
AttrVisibleEnd is the attribute holding the end (epoch millis) of the
visibility window of an entity.
*/
const AttrVisibleEnd = "visibleend"

// Security graph kinds
// ====================

/*
EdgeKindSecurity is the kind of edges carrying permission allow lists. A
security edge runs from a principal node to the protected entity and its
"allowed" attribute holds a comma separated list of permitted actions.
*/
const EdgeKindSecurity = "security"

/*
EdgeKindMember is the kind of edges expressing group membership. A member
edge runs from a principal node to a group node.
*/
const EdgeKindMember = "member"

/*
AttrAllowed is the attribute on security edges holding the comma separated
list of permitted actions.
*/
const AttrAllowed = "allowed"

/*
Edge roles used by security and member edges. Security edges run from a
principal (RolePrincipal) to the protected entity (RoleResource), member
edges from a principal (RoleMember) to a group (RoleGroup).
*/
const (
	RolePrincipal = "principal"
	RoleResource  = "resource"
	RoleMember    = "member"
	RoleGroup     = "group"
)

/*
Permission actions which can appear in security edge allow lists.
*/
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// Errors
// ======

/*
Entity layer related error types
*/
var (
	ErrNotFound    = errors.New("Entity not found")
	ErrDenied      = errors.New("Operation denied")
	ErrInvalidData = errors.New("Invalid data")
	ErrInternal    = errors.New("Internal error")
)

/*
ModelError is an entity layer related error.
*/
type ModelError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (me *ModelError) Error() string {
	if me.Detail != "" {
		return fmt.Sprintf("ModelError: %v (%v)", me.Type, me.Detail)
	}

	return fmt.Sprintf("ModelError: %v", me.Type)
}
