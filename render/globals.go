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
Package render contains the page rendering engine of Weave.

Pages are trees of element and content entities connected through contains
relationships. A render pass walks such a tree with a per-request Context,
substitutes placeholders in content nodes against the live graph and
redistributes slot content captured from usage sites into component
subtrees. Contexts are never shared between concurrent renders.
*/
package render

import (
	"errors"
	"fmt"

	"github.com/krotik/common/logutil"
	"github.com/krotik/weave/model"
)

/*
Logger for the rendering engine
*/
var log = logutil.GetLogger("weave.render")

// Schema
// ======

/*
KindElement is the entity kind of DOM elements.
*/
const KindElement = "weaveelement"

/*
KindContent is the entity kind of content (template text) nodes.
*/
const KindContent = "weavecontent"

/*
TraitRenderable is the trait shared by all renderable entity kinds.
*/
const TraitRenderable = "weaverenderable"

/*
RelContains is the relation connecting an element to its children. An
element can contain many children, every child has exactly one parent.
Children are ordered by the ordinal attribute of their contains edge.
*/
const RelContains = "weavecontains"

/*
AttrOrdinal is the contains edge attribute carrying the position of a
child below its parent.
*/
const AttrOrdinal = "ordinal"

/*
RelLink is the relation connecting an element to linked elements.
*/
const RelLink = "weavelink"

/*
Attribute names of element and content entities.
*/
const (
	AttrTag     = "tag"
	AttrContent = "content"
	AttrClass   = "class"
	AttrName    = "name"
)

/*
AttrDataPrefix marks entity attributes which are exposed as custom
(data) attributes of an element.
*/
const AttrDataPrefix = "data-"

/*
RegisterSchema registers the rendering kinds and relations with a schema
registry.
*/
func RegisterSchema(reg *model.Registry) error {

	if err := reg.RegisterKind(KindElement, []string{TraitRenderable}); err != nil {
		return err
	}

	if err := reg.RegisterKind(KindContent, []string{TraitRenderable}); err != nil {
		return err
	}

	if err := reg.RegisterRelation(&model.Relation{
		Name:        RelContains,
		Kind:        RelContains,
		SourceKind:  KindElement,
		TargetKind:  TraitRenderable,
		SourceRole:  "parent",
		TargetRole:  "child",
		Direction:   model.Outgoing,
		Cardinality: model.OneToMany,
		OrderAttr:   AttrOrdinal,
	}); err != nil {
		return err
	}

	return reg.RegisterRelation(&model.Relation{
		Name:        RelLink,
		Kind:        RelLink,
		SourceKind:  KindElement,
		TargetKind:  TraitRenderable,
		SourceRole:  "origin",
		TargetRole:  "linked",
		Direction:   model.Outgoing,
		Cardinality: model.ManyToMany,
	})
}

// Errors
// ======

/*
Rendering related error types
*/
var (
	ErrNotFound    = errors.New("Element not found")
	ErrInvalidData = errors.New("Invalid element data")
)

/*
RenderError is a rendering related error.
*/
type RenderError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (re *RenderError) Error() string {
	if re.Detail != "" {
		return fmt.Sprintf("RenderError: %v (%v)", re.Type, re.Detail)
	}

	return fmt.Sprintf("RenderError: %v", re.Type)
}
