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

/*
SlotClass is the CSS class which marks an element as a slot. A node is a
slot only if its class list contains this token and at least one
structural class name.
*/
const SlotClass = "slot"

/*
AttributesSlot is the fixed queue name under which the custom attribute
map of a captured subtree root is always recorded.
*/
const AttributesSlot = "attributes"

/*
structuralClasses is the whitelist of structural class names which can
name a slot.
*/
var structuralClasses = map[string]bool{
	"header":  true,
	"main":    true,
	"footer":  true,
	"sidebar": true,
	"content": true,
	"nav":     true,
}

/*
slotEntry is one captured unit of slot content.
*/
type slotEntry struct {
	children []*Element             // Captured child list in document order
	data     map[string]interface{} // Captured data properties
	attrs    map[string]string      // Captured custom attributes in all name variants
}

/*
SlotData redistributes content between component subtrees. A capture pass
over a source subtree records the children, data properties and custom
attributes of every slot into per-slot-name FIFO queues, a later MoveTo
pass drains the queues into the slots of a target subtree. Missing
captured data is a silent no-op.
*/
type SlotData struct {
	queues map[string][]*slotEntry
}

/*
NewSlotData creates a new empty SlotData instance.
*/
func NewSlotData() *SlotData {
	return &SlotData{make(map[string][]*slotEntry)}
}

/*
SlotName returns the structural name of an element if it is a slot. An
element is a slot only if its class list contains the slot token and a
whitelisted structural class, the first structural class wins.
*/
func SlotName(el *Element) string {

	if !el.HasClass(SlotClass) {
		return ""
	}

	for _, class := range el.Classes {
		if structuralClasses[class] {
			return class
		}
	}

	return ""
}

/*
Capture records the slot content of a source subtree. Slots are collected
in document order, recursion skips the inside of a slot because its
subtree belongs to the slot. The custom attribute map of the subtree root
is always captured into the attributes queue regardless of slot-ness.
*/
func (sd *SlotData) Capture(root *Element) {

	if root == nil {
		return
	}

	attrs := make(map[string]string)
	for name, val := range root.Attributes {
		attrs[name] = val

		// Record the prefixed and view-prefixed name variants as well

		attrs[AttrDataPrefix+name] = val
		attrs["view-"+name] = val
	}

	sd.queues[AttributesSlot] = append(sd.queues[AttributesSlot],
		&slotEntry{nil, nil, attrs})

	sd.capture(root)
}

/*
capture walks a subtree and records every slot found.
*/
func (sd *SlotData) capture(el *Element) {

	if name := SlotName(el); name != "" {

		entry := &slotEntry{
			children: append([]*Element{}, el.Children...),
			data:     make(map[string]interface{}),
			attrs:    make(map[string]string),
		}

		for k, v := range el.Data {
			entry.data[k] = v
		}

		for k, v := range el.Attributes {
			entry.attrs[k] = v

			// Record the prefixed and view-prefixed name variants as well

			entry.attrs[AttrDataPrefix+k] = v
			entry.attrs["view-"+k] = v
		}

		sd.queues[name] = append(sd.queues[name], entry)

		// The subtree of a slot belongs to the slot, do not scan inside

		return
	}

	for _, child := range el.Children {
		sd.capture(child)
	}
}

/*
MoveTo redistributes captured slot content into a target subtree. Each
matching slot drains one entry from its name's queue in FIFO order: the
slot's children are replaced by the captured list, captured data
properties are applied and captured attributes are reapplied by name.
Recursion continues only through non-slot nodes. The attributes queue is
applied to the subtree root first.
*/
func (sd *SlotData) MoveTo(root *Element) {

	if root == nil {
		return
	}

	if entry := sd.next(AttributesSlot); entry != nil {
		for name, val := range entry.attrs {
			root.Attributes[name] = val
		}
	}

	sd.moveTo(root)
}

/*
moveTo walks a target subtree and fills every slot found.
*/
func (sd *SlotData) moveTo(el *Element) {

	if name := SlotName(el); name != "" {

		entry := sd.next(name)
		if entry == nil {

			// Nothing captured for this slot name

			return
		}

		el.Children = entry.children

		for k, v := range entry.data {
			el.Data[k] = v

			if el.entity != nil {
				if err := el.entity.SetProperty(k, v); err != nil {
					log.Warning("Could not apply slot data property ", k, ": ", err)
				}
			}
		}

		for k, v := range entry.attrs {
			el.Attributes[k] = v
		}

		return
	}

	for _, child := range el.Children {
		sd.moveTo(child)
	}
}

/*
next drains the first entry of a slot queue. Returns nil if the queue is
empty.
*/
func (sd *SlotData) next(name string) *slotEntry {

	queue := sd.queues[name]
	if len(queue) == 0 {
		return nil
	}

	sd.queues[name] = queue[1:]

	return queue[0]
}
