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
	"fmt"
	"strings"

	"github.com/krotik/weave/model"
)

/*
maxTreeDepth bounds the depth of loaded element trees so cyclic contains
graphs terminate.
*/
const maxTreeDepth = 100

/*
Element is an in-memory DOM node of a page tree. Elements are materialized
from the graph through the entity layer and mutated freely during a render
pass, changes are never written back.
*/
type Element struct {
	Kind       string                 // Entity kind (element or content)
	Key        string                 // Entity key
	Tag        string                 // HTML tag of an element node
	Content    string                 // Template text of a content node
	Classes    []string               // CSS class names
	Name       string                 // Structural name of this node
	Attributes map[string]string      // Custom (data) attributes
	Data       map[string]interface{} // Data properties for slot redistribution
	Children   []*Element             // Child nodes in document order

	entity *model.Entity
}

/*
NewElement creates a new in-memory element node.
*/
func NewElement(kind string, key string) *Element {
	return &Element{Kind: kind, Key: key,
		Attributes: make(map[string]string),
		Data:       make(map[string]interface{})}
}

/*
Entity returns the entity backing this element. Returns nil for elements
which were built in memory.
*/
func (el *Element) Entity() *model.Entity {
	return el.entity
}

/*
HasClass checks if this element carries a given CSS class.
*/
func (el *Element) HasClass(class string) bool {

	for _, c := range el.Classes {
		if c == class {
			return true
		}
	}

	return false
}

/*
String returns a string representation of this element.
*/
func (el *Element) String() string {
	if el.Kind == KindContent {
		return fmt.Sprintf("Content %v", el.Key)
	}

	return fmt.Sprintf("Element %v <%v>", el.Key, el.Tag)
}

/*
LoadElement materializes the element subtree below a given entity key. The
tree is built through the entity layer following contains relationships
with a visited set and bounded depth so cyclic graphs terminate. Children
appear in the order given by the ordinal attribute of their contains
edges.
*/
func LoadElement(mgr *model.Manager, sec model.Principal, key string) (*Element, error) {

	visited := make(map[string]bool)

	return loadElement(mgr, sec, key, KindElement, visited, 0)
}

/*
loadElement loads a single element and recurses into its children.
*/
func loadElement(mgr *model.Manager, sec model.Principal, key string, kind string,
	visited map[string]bool, depth int) (*Element, error) {

	if depth > maxTreeDepth {
		log.Warning("Cutting off element tree at depth ", depth, " below ", key)
		return nil, nil
	}

	if visited[kind+"#"+key] {
		return nil, nil
	}
	visited[kind+"#"+key] = true

	ent, err := mgr.FetchEntity(kind, key)
	if err != nil {
		if me, ok := err.(*model.ModelError); ok && me.Type == model.ErrNotFound {
			return nil, &RenderError{ErrNotFound, fmt.Sprintf("%v %v", kind, key)}
		}
		return nil, err
	}

	el := newElementFromEntity(mgr, ent)

	if el.Kind == KindContent {
		return el, nil
	}

	children, err := mgr.RelatedNodes(sec, RelContains, ent)
	if err != nil {
		return nil, err
	}

	for _, child := range children {
		cel, err := loadElement(mgr, sec, child.Key(), child.Kind(), visited, depth+1)
		if err != nil {
			return nil, err
		}

		if cel != nil {
			el.Children = append(el.Children, cel)
		}
	}

	return el, nil
}

/*
newElementFromEntity builds an element from its backing entity.
*/
func newElementFromEntity(mgr *model.Manager, ent *model.Entity) *Element {

	el := NewElement(ent.Kind(), ent.Key())
	el.entity = ent

	el.Tag = ent.Str(AttrTag)
	el.Content = ent.Str(AttrContent)
	el.Name = ent.Str(AttrName)
	el.Classes = strings.Fields(ent.Str(AttrClass))

	// Custom attributes are entity attributes carrying the data prefix

	node, err := mgr.GraphManager().FetchNode(mgr.Partition(), ent.Key(), ent.Kind())
	if err != nil || node == nil {
		return el
	}

	for attr, val := range node.Data() {
		if strings.HasPrefix(attr, AttrDataPrefix) {
			el.Attributes[attr[len(AttrDataPrefix):]] = fmt.Sprint(val)
		}
	}

	return el
}
