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
	"sort"
	"strings"

	"github.com/krotik/weave/model"
)

/*
Placeholder delimiters in content text.
*/
const (
	placeholderPrefix = "%{"
	placeholderSuffix = "}"
)

/*
Reserved placeholder keys. TokenChildren renders the direct children of
the calling node, TokenChildrenLinked the children and all linked nodes.
*/
const (
	TokenChildren       = "children"
	TokenChildrenLinked = "childrenlinked"
)

/*
Substitute resolves all placeholders in a content string against the
current node and data stack. Placeholders have the form %{key},
%{key,template} or %{key.property}. The scan runs left to right and the
cursor is advanced past every replacement, replacement text is never
rescanned. An unterminated placeholder logs a warning and truncates the
scan at that point.
*/
func (c *Context) Substitute(content string, node *Element) string {
	var out strings.Builder

	pos := 0

	for {
		start := strings.Index(content[pos:], placeholderPrefix)
		if start == -1 {
			out.WriteString(content[pos:])
			break
		}

		out.WriteString(content[pos : pos+start])

		exprStart := pos + start + len(placeholderPrefix)

		end := strings.Index(content[exprStart:], placeholderSuffix)
		if end == -1 {
			log.Warning("Unterminated placeholder in content of ", node)
			break
		}

		c.substituteExpr(&out, content[exprStart:exprStart+end], node)

		pos = exprStart + end + len(placeholderSuffix)
	}

	return out.String()
}

/*
substituteExpr resolves a single placeholder expression and appends the
result to the output.
*/
func (c *Context) substituteExpr(out *strings.Builder, expr string, node *Element) {

	key := expr
	template := ""

	if idx := strings.Index(expr, ","); idx != -1 {
		key = expr[:idx]
		template = strings.TrimSpace(expr[idx+1:])
	}

	val, err := c.resolve(key, node)
	if err != nil {
		log.Warning("Could not resolve placeholder ", key, ": ", err)
		return
	}

	c.appendValue(out, val, template)
}

/*
resolve evaluates a placeholder key against the current node. Reserved
tokens yield the children or the children and linked nodes of the calling
node, everything else is looked up relative to the current data object.
A trailing .property chain is applied to entity results.
*/
func (c *Context) resolve(key string, node *Element) (interface{}, error) {

	if key == TokenChildren {
		return node.Children, nil
	}

	if key == TokenChildrenLinked {

		ret := make([]interface{}, 0, len(node.Children))

		for _, child := range node.Children {
			ret = append(ret, child)
		}

		if node.entity != nil {
			linked, err := c.mgr.RelatedNodes(c.sec, RelLink, node.entity)
			if err != nil {
				return nil, err
			}

			for _, ent := range linked {
				ret = append(ret, ent)
			}
		}

		return ret, nil
	}

	path := strings.Split(key, ".")

	val, err := c.resolveBase(path[0], node)

	for _, prop := range path[1:] {
		if err != nil || val == nil {
			break
		}

		ent, ok := val.(*model.Entity)
		if !ok {
			return nil, &RenderError{ErrInvalidData,
				fmt.Sprintf("Cannot access %v on a non-entity value", prop)}
		}

		val, err = ent.GetProperty(prop)
	}

	return val, err
}

/*
resolveBase resolves the first segment of a placeholder key. Registered
relation names resolve to related entities of the current data object, all
other keys resolve to a property of the current data object or the calling
node's entity.
*/
func (c *Context) resolveBase(key string, node *Element) (interface{}, error) {

	cur := c.Peek()
	if cur == nil {
		cur = node.entity
	}

	if cur == nil {
		return nil, nil
	}

	if rel := c.mgr.Registry().Relation(key); rel != nil {

		ents, err := c.mgr.RelatedNodes(c.sec, key, cur)
		if err != nil {
			return nil, err
		}

		if rel.Cardinality == model.OneToOne || rel.Cardinality == model.ManyToOne {
			if len(ents) == 0 {
				return nil, nil
			}
			return ents[0], nil
		}

		return ents, nil
	}

	return cur.GetProperty(key)
}

/*
appendValue appends a resolved placeholder value to the output. Entities
and elements render recursively through a cloned context, lists append
each item in order, scalars append their string form.
*/
func (c *Context) appendValue(out *strings.Builder, val interface{}, template string) {

	if val == nil {
		return
	}

	switch v := val.(type) {

	case *Element:
		sub := c.Snapshot()
		sub.RenderElement(v)
		out.WriteString(sub.Output())

	case *model.Entity:
		out.WriteString(c.renderEntity(v, template))

	case []*Element:
		for _, item := range v {
			c.appendValue(out, item, template)
		}

	case []*model.Entity:
		for _, item := range v {
			c.appendValue(out, item, template)
		}

	case []interface{}:
		for _, item := range v {
			c.appendValue(out, item, template)
		}

	default:
		out.WriteString(fmt.Sprint(val))
	}
}

/*
renderEntity renders a single entity result of a placeholder. With a
template the template's content is rendered with the entity as the current
data object, otherwise renderable entities render their subtree and plain
entities insert their name or key.
*/
func (c *Context) renderEntity(ent *model.Entity, template string) string {

	if c.depth > maxRenderDepth {
		log.Warning("Cutting off placeholder render at depth ", c.depth)
		return ""
	}

	if template != "" {

		tmpl, err := c.mgr.FetchEntity(KindContent, template)
		if err != nil {
			log.Warning("Could not load template ", template, ": ", err)
			return ""
		}

		sub := c.Snapshot()
		sub.depth++
		sub.Push(ent)

		return sub.Substitute(tmpl.Str(AttrContent), NewElement(KindContent, template))
	}

	if ent.Kind() == KindElement || ent.Kind() == KindContent {

		el, err := loadElement(c.mgr, c.sec, ent.Key(), ent.Kind(),
			make(map[string]bool), 0)
		if err != nil || el == nil {
			log.Warning("Could not load element ", ent.Key(), ": ", err)
			return ""
		}

		sub := c.Snapshot()
		sub.depth++
		sub.Push(ent)
		sub.RenderElement(el)

		return sub.Output()
	}

	if name := ent.Str(AttrName); name != "" {
		return name
	}

	return ent.Key()
}

/*
sortedAttrNames returns the keys of an attribute map in a stable order.
*/
func sortedAttrNames(attrs map[string]string) []string {
	ret := make([]string, 0, len(attrs))

	for name := range attrs {
		ret = append(ret, name)
	}

	sort.StringSlice(ret).Sort()

	return ret
}
