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
Package ecal contains the main API for the event condition action language (ECAL).
*/
package ecal

import (
	"fmt"
	"strings"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/ecal/engine"
	"github.com/krotik/ecal/scope"
	"github.com/krotik/ecal/util"
	"github.com/krotik/weave/graph"
	"github.com/krotik/weave/graph/data"
	"github.com/krotik/weave/model"
)

/*
EventMapping maps graph events to their event kinds in ECAL. The db.node
and db.edge events carry the raw graph objects. Nodes whose kind is
registered in the entity schema additionally raise a db.entity event
which carries entity level information.
*/
var EventMapping = map[int]string{

	/*
	   EventNodeCreated is thrown when a node was created.

	   Parameters: partition of created node, created node
	*/
	graph.EventNodeCreated: "db.node.created",

	/*
	   EventNodeUpdated is thrown when a node was updated.

	   Parameters: partition of updated node, updated node, old node
	*/
	graph.EventNodeUpdated: "db.node.updated",

	/*
	   EventNodeDeleted is thrown when a node was deleted.

	   Parameters: partition of deleted node, deleted node
	*/
	graph.EventNodeDeleted: "db.node.deleted",

	/*
	   EventEdgeCreated is thrown when an edge was created.

	   Parameters: partition of created edge, created edge
	*/
	graph.EventEdgeCreated: "db.edge.created",

	/*
	   EventEdgeUpdated is thrown when an edge was updated.

	   Parameters: partition of updated edge, updated edge, old edge
	*/
	graph.EventEdgeUpdated: "db.edge.updated",

	/*
	   EventEdgeDeleted is thrown when an edge was deleted.

	   Parameters: partition of deleted edge, deleted edge
	*/
	graph.EventEdgeDeleted: "db.edge.deleted",

	/*
	   EventNodeStore is thrown before a node is stored (always overwriting existing values).

	   Parameters: partition of node to store, node to store
	*/
	graph.EventNodeStore: "db.node.store",

	/*
	   EventNodeUpdate is thrown before a node is updated.

	   Parameters: partition of node to update, node to update
	*/
	graph.EventNodeUpdate: "db.node.update",

	/*
	   EventNodeDelete is thrown before a node is deleted.

	   Parameters: partition of node to delete, key of node to delete, kind of node to delete
	*/
	graph.EventNodeDelete: "db.node.delete",

	/*
	   EventEdgeStore is thrown before an edge is stored (always overwriting existing values).

	   Parameters: partition of stored edge, stored edge
	*/
	graph.EventEdgeStore: "db.edge.store",

	/*
	   EventEdgeDelete is thrown before an edge is deleted.

	   Parameters: partition of deleted edge, deleted edge
	*/
	graph.EventEdgeDelete: "db.edge.delete",
}

/*
entityEventMapping maps node events to their db.entity counterparts.
*/
var entityEventMapping = map[int]string{
	graph.EventNodeCreated: "db.entity.created",
	graph.EventNodeUpdated: "db.entity.updated",
	graph.EventNodeDeleted: "db.entity.deleted",
	graph.EventNodeStore:   "db.entity.store",
	graph.EventNodeUpdate:  "db.entity.update",
	graph.EventNodeDelete:  "db.entity.delete",
}

/*
EventBridge is a graph manager rule which forwards all graph events to
ECAL. If a schema registry is set then node events of registered entity
kinds are additionally forwarded as db.entity events.
*/
type EventBridge struct {
	Processor engine.Processor
	Logger    util.Logger
	Registry  *model.Registry
}

/*
Name returns the name of the rule.
*/
func (eb *EventBridge) Name() string {
	return "ecal.eventbridge"
}

/*
Handles returns a list of events which are handled by this rule.
*/
func (eb *EventBridge) Handles() []int {
	return []int{
		graph.EventNodeCreated,
		graph.EventNodeUpdated,
		graph.EventNodeDeleted,
		graph.EventEdgeCreated,
		graph.EventEdgeUpdated,
		graph.EventEdgeDeleted,
		graph.EventNodeStore,
		graph.EventNodeUpdate,
		graph.EventNodeDelete,
		graph.EventEdgeStore,
		graph.EventEdgeDelete,
	}
}

/*
Handle handles an event. A sink error cancels the graph operation, a sink
which raised the event handled error takes over the operation.
*/
func (eb *EventBridge) Handle(gm *graph.Manager, trans graph.Trans, event int, ed ...interface{}) error {

	name, ok := EventMapping[event]
	if !ok {
		return nil
	}

	err := eb.inject(name, eb.buildState(trans, event, ed))

	// Forward node events of registered entity kinds as entity events

	if err != nil && err != graph.ErrEventHandled {
		return err
	}

	if entName := eb.entityEvent(event, ed); entName != "" {

		state := eb.buildState(trans, event, ed)
		state["traits"] = scope.ConvertJSONToECALObject(eb.entityTraits(event, ed))

		if eerr := eb.inject(entName, state); eerr != nil {
			err = eerr
		}
	}

	return err
}

/*
entityEvent returns the db.entity event name for a node event of a
registered entity kind. Returns an empty string for all other events.
*/
func (eb *EventBridge) entityEvent(event int, ed []interface{}) string {

	if eb.Registry == nil {
		return ""
	}

	name, ok := entityEventMapping[event]
	if !ok {
		return ""
	}

	if !eb.Registry.KnownKind(eb.eventKind(event, ed)) {
		return ""
	}

	return name
}

/*
eventKind extracts the node kind from the event parameters.
*/
func (eb *EventBridge) eventKind(event int, ed []interface{}) string {

	if event == graph.EventNodeDelete {
		return fmt.Sprint(ed[2])
	}

	if node, ok := ed[1].(data.Node); ok {
		return node.Kind()
	}

	return ""
}

/*
entityTraits returns the registered traits of the entity kind of a node
event.
*/
func (eb *EventBridge) entityTraits(event int, ed []interface{}) []interface{} {

	traits := eb.Registry.Traits(eb.eventKind(event, ed))

	ret := make([]interface{}, 0, len(traits))
	for _, trait := range traits {
		ret = append(ret, trait)
	}

	return ret
}

/*
buildState builds the ECAL event state for a graph event.
*/
func (eb *EventBridge) buildState(trans graph.Trans, event int, ed []interface{}) map[interface{}]interface{} {

	state := map[interface{}]interface{}{
		"part":  fmt.Sprint(ed[0]),
		"trans": trans,
	}

	switch event {
	case graph.EventNodeCreated, graph.EventNodeUpdate, graph.EventNodeDeleted, graph.EventNodeStore:
		state["node"] = scope.ConvertJSONToECALObject(ed[1].(data.Node).Data())

	case graph.EventNodeUpdated:
		state["node"] = scope.ConvertJSONToECALObject(ed[1].(data.Node).Data())
		state["old_node"] = scope.ConvertJSONToECALObject(ed[2].(data.Node).Data())

	case graph.EventEdgeCreated, graph.EventEdgeDeleted, graph.EventEdgeStore:
		state["edge"] = scope.ConvertJSONToECALObject(ed[1].(data.Edge).Data())

	case graph.EventEdgeUpdated:
		state["edge"] = scope.ConvertJSONToECALObject(ed[1].(data.Edge).Data())
		state["old_edge"] = scope.ConvertJSONToECALObject(ed[2].(data.Edge).Data())

	case graph.EventNodeDelete, graph.EventEdgeDelete:
		state["key"] = fmt.Sprint(ed[1])
		state["kind"] = fmt.Sprint(ed[2])
	}

	return state
}

/*
inject injects an event into the ECAL processor and waits for all
triggered sinks.
*/
func (eb *EventBridge) inject(name string, state map[interface{}]interface{}) error {
	var err error

	eventName := fmt.Sprintf("Weave: %v", name)
	eventKind := strings.Split(name, ".")

	// Check if any rule would trigger before the event state is handed over.
	// This avoids the relative costly processing below for events which
	// would not trigger any rules.

	if !eb.Processor.IsTriggering(engine.NewEvent(eventName, eventKind, nil)) {
		return nil
	}

	event := engine.NewEvent(eventName, eventKind, state)

	var m engine.Monitor
	m, err = eb.Processor.AddEventAndWait(event, nil)

	if err == nil {

		// If there was no direct error adding the event then check if an error
		// was raised in a sink

		if errs := m.(*engine.RootMonitor).AllErrors(); len(errs) > 0 {
			var errList []error

			for _, e := range errs {

				addError := true

				for _, se := range e.ErrorMap {

					// Check if the sink returned a special graph.ErrEventHandled error

					if re, ok := se.(*util.RuntimeErrorWithDetail); ok && re.Detail == graph.ErrEventHandled.Error() {
						addError = false
					}
				}

				if addError {
					errList = append(errList, e)
				}
			}

			if len(errList) > 0 {
				err = &errorutil.CompositeError{Errors: errList}
			} else {
				err = graph.ErrEventHandled
			}
		}
	}

	if err != nil {
		eb.Logger.LogDebug(fmt.Sprintf("Weave event %v was handled by ECAL and returned: %v", name, err))
	}

	return err
}
