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
Package graph contains the graph substrate of Weave.

Manager API

The main API is provided by a Manager object which can be created with the
NewGraphManager() constructor function. The manager provides CRUD
functionality for nodes and edges through store, fetch and remove functions.
It also provides the basic traversal functionality which allows the traversal
from one node to other nodes.

Transactions

A transaction is used to build up multiple store and delete tasks for the
graph. Nothing is written before calling Commit(). A transaction commit does
an automatic rollback if an error occurs. A Trans object can be created with
the NewGraphTrans() function.

Rules

Graph rules provide automatic operations which help to keep the graph
consistent. Rules trigger on global graph events. The rules
SystemRuleDeleteNodeEdges and SystemRuleUpdateNodeStats are automatically
loaded when a new Manager is created.

Storage

A graph manager divides the graph storage into several databases:

Main database

MainDB stores various meta information such as known node/edge kinds,
attributes or version information.

Nodes database

Each partition and node kind pair gets a storage manager which stores:

	PrefixNodeAttrs + node key -> map of all node attributes
	PrefixNodeSpecs + node key -> map of specs of edges related to the node
	PrefixNodeEdgeInfo + node key + spec -> map[edge key]edgeTargetInfo
	(connection from one node to another via a spec)

Edges database

Each partition and edge kind pair gets a storage manager which stores:

	PrefixNodeAttrs + edge key -> map of all edge attributes
*/
package graph

import "errors"

/*
VERSION of the graph substrate
*/
const VERSION = 1

/*
MainDBEntryPrefix is the prefix for entries stored in the main database
*/
const MainDBEntryPrefix = "\x02"

// MainDB entries
// ==============

/*
MainDBVersion is the MainDB entry key for version information
*/
const MainDBVersion = MainDBEntryPrefix + "ver"

/*
MainDBNodeKinds is the MainDB entry key for node kind information
*/
const MainDBNodeKinds = MainDBEntryPrefix + "nodekind"

/*
MainDBEdgeKinds is the MainDB entry key for edge kind information
*/
const MainDBEdgeKinds = MainDBEntryPrefix + "edgekind"

/*
MainDBParts is the MainDB entry key for partition information
*/
const MainDBParts = MainDBEntryPrefix + "part"

/*
MainDBNodeAttrs is the MainDB entry key for a list of node attributes
*/
const MainDBNodeAttrs = MainDBEntryPrefix + "natt"

/*
MainDBNodeEdges is the MainDB entry key for a list of node relationships
*/
const MainDBNodeEdges = MainDBEntryPrefix + "nrel"

/*
MainDBNodeCount is the MainDB entry key for a node count
*/
const MainDBNodeCount = MainDBEntryPrefix + "ncnt"

/*
MainDBEdgeAttrs is the MainDB entry key for a list of edge attributes
*/
const MainDBEdgeAttrs = MainDBEntryPrefix + "eatt"

/*
MainDBEdgeCount is the MainDB entry key for an edge count
*/
const MainDBEdgeCount = MainDBEntryPrefix + "ecnt"

// Suffixes for storage managers
// =============================

/*
StorageSuffixNodes is the suffix for a node storage
*/
const StorageSuffixNodes = ".nodes"

/*
StorageSuffixEdges is the suffix for an edge storage
*/
const StorageSuffixEdges = ".edges"

// Prefixes for entries in node storages
// =====================================

/*
PrefixNodeAttrs is the prefix for storing the attributes of a node
*/
const PrefixNodeAttrs = "\x01"

/*
PrefixNodeSpecs is the prefix for storing specs of edges related to a node
*/
const PrefixNodeSpecs = "\x02"

/*
PrefixNodeEdgeInfo is the prefix for storing a link from a node (and a spec)
to an edge
*/
const PrefixNodeEdgeInfo = "\x03"

// Graph events
//=============

/*
EventNodeCreated is thrown when a node gets created.

Parameters: partition of created node, created node
*/
const EventNodeCreated = 0x01

/*
EventNodeUpdated is thrown when a node gets updated.

Parameters: partition of updated node, updated node, old node
*/
const EventNodeUpdated = 0x02

/*
EventNodeDeleted is thrown when a node gets deleted.

Parameters: partition of deleted node, deleted node
*/
const EventNodeDeleted = 0x03

/*
EventEdgeCreated is thrown when an edge gets created.

Parameters: partition of created edge, created edge
*/
const EventEdgeCreated = 0x04

/*
EventEdgeUpdated is thrown when an edge gets updated.

Parameters: partition of updated edge, updated edge, old edge
*/
const EventEdgeUpdated = 0x05

/*
EventEdgeDeleted is thrown when an edge gets deleted.

Parameters: partition of deleted edge, deleted edge
*/
const EventEdgeDeleted = 0x06

/*
EventNodeStore is thrown before a node gets stored.

Parameters: partition of node to store, node to store
*/
const EventNodeStore = 0x10

/*
EventNodeUpdate is thrown before a node gets updated.

Parameters: partition of node to update, node to update
*/
const EventNodeUpdate = 0x11

/*
EventNodeDelete is thrown before a node gets deleted.

Parameters: partition of node to delete, key and kind of node to delete
*/
const EventNodeDelete = 0x12

/*
EventEdgeStore is thrown before an edge gets stored.

Parameters: partition of edge to store, edge to store
*/
const EventEdgeStore = 0x13

/*
EventEdgeDelete is thrown before an edge gets deleted.

Parameters: partition of edge to delete, key and kind of edge to delete
*/
const EventEdgeDelete = 0x14

/*
ErrEventHandled is a special error which can be returned by event handlers
to indicate that the event was handled and default processing should stop.
*/
var ErrEventHandled = errors.New("Event handled")
