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
	"bytes"
	"fmt"

	"github.com/krotik/weave/model"
)

/*
Edit modes of a render pass.
*/
const (
	ModeNone            = 0
	ModeWidgetEdit      = 1
	ModeContentEdit     = 2
	ModeRaw             = 3
	ModeDeployment      = 4
	ModeShapes          = 5
	ModeShapesMiniature = 6
)

/*
maxRenderDepth bounds the nesting depth of a render pass.
*/
const maxRenderDepth = 100

/*
Context is the per-render state of one render pass. A context is created
per request and never shared between concurrent renders. Nested renders
either Clone the context (sharing the output buffer for streamed
concatenation) or Snapshot it (fresh buffer for isolated sub-renders).
*/
type Context struct {
	mgr     *model.Manager  // Entity manager for graph lookups
	sec     model.Principal // Principal of the requesting actor
	mode    int             // Edit mode of this render pass
	depth   int             // Current nesting depth
	inBody  bool            // Flag if the render is inside the page body
	partial bool            // Flag if this is a partial render
	data    []*model.Entity // Data object stack
	buf     *bytes.Buffer   // Output buffer
}

/*
NewContext creates a new render context. Mode values outside the known
range fall back to ModeNone.
*/
func NewContext(mgr *model.Manager, sec model.Principal, mode int) *Context {

	if mode < ModeNone || mode > ModeShapesMiniature {
		log.Warning("Unknown edit mode ", mode, " - falling back to none")
		mode = ModeNone
	}

	return &Context{mgr, sec, mode, 0, false, false, nil, &bytes.Buffer{}}
}

/*
Mode returns the edit mode of this render pass.
*/
func (c *Context) Mode() int {
	return c.mode
}

/*
InBody returns if the render is inside the page body.
*/
func (c *Context) InBody() bool {
	return c.inBody
}

/*
SetPartial marks this context as a partial render.
*/
func (c *Context) SetPartial(partial bool) {
	c.partial = partial
}

/*
IsPartial returns if this is a partial render.
*/
func (c *Context) IsPartial() bool {
	return c.partial
}

/*
Output returns everything written to the output buffer so far.
*/
func (c *Context) Output() string {
	return c.buf.String()
}

/*
Push puts a data object on the data stack.
*/
func (c *Context) Push(e *model.Entity) {
	c.data = append(c.data, e)
}

/*
Pop removes and returns the top data object of the data stack.
*/
func (c *Context) Pop() *model.Entity {

	if len(c.data) == 0 {
		return nil
	}

	e := c.data[len(c.data)-1]
	c.data = c.data[:len(c.data)-1]

	return e
}

/*
Peek returns the top data object of the data stack without removing it.
*/
func (c *Context) Peek() *model.Entity {

	if len(c.data) == 0 {
		return nil
	}

	return c.data[len(c.data)-1]
}

/*
Clone returns a copy of this context for a nested render. The copy shares
the output buffer, nested output is streamed into the surrounding render.
*/
func (c *Context) Clone() *Context {
	clone := *c
	clone.depth++

	return &clone
}

/*
Snapshot returns a copy of this context with a copy of the data stack and
a fresh output buffer for an isolated sub-render.
*/
func (c *Context) Snapshot() *Context {
	clone := *c

	clone.data = make([]*model.Entity, len(c.data))
	copy(clone.data, c.data)

	clone.buf = &bytes.Buffer{}

	return &clone
}

/*
RenderElement renders an element subtree into the output buffer. Content
nodes have their placeholders substituted unless the context is in raw
mode. Unrenderable constructs are logged and skipped, a render pass never
fails hard.
*/
func (c *Context) RenderElement(el *Element) {

	if el == nil {
		return
	}

	if c.depth > maxRenderDepth {
		log.Warning("Cutting off render at depth ", c.depth)
		return
	}

	if el.Kind == KindContent {

		if c.mode == ModeRaw {
			c.buf.WriteString(el.Content)
		} else {
			c.buf.WriteString(c.Substitute(el.Content, el))
		}

		return
	}

	if el.Tag != "" {
		c.buf.WriteString("<")
		c.buf.WriteString(el.Tag)

		for _, attr := range sortedAttrNames(el.Attributes) {
			c.buf.WriteString(fmt.Sprintf(" data-%v=%q", attr, el.Attributes[attr]))
		}

		c.buf.WriteString(">")
	}

	sub := c.Clone()
	if el.Tag == "body" {
		sub.inBody = true
	}

	for _, child := range el.Children {
		sub.RenderElement(child)
	}

	if el.Tag != "" {
		c.buf.WriteString("</")
		c.buf.WriteString(el.Tag)
		c.buf.WriteString(">")
	}
}

/*
RenderPage loads and renders the page subtree below a given element key
and returns the produced output.
*/
func (c *Context) RenderPage(key string) (string, error) {

	el, err := LoadElement(c.mgr, c.sec, key)
	if err != nil {
		return "", err
	}

	if el.entity != nil {
		c.Push(el.entity)
		defer c.Pop()
	}

	c.RenderElement(el)

	return c.Output(), nil
}
