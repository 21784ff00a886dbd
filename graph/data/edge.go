/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import "fmt"

/*
Edge models edges in the graph.
*/
type Edge interface {
	Node

	/*
		End1Key returns the key of the first end of this edge.
	*/
	End1Key() string

	/*
		End1Kind returns the kind of the first end of this edge.
	*/
	End1Kind() string

	/*
		End1Role returns the role of the first end of this edge.
	*/
	End1Role() string

	/*
		End1IsCascading is a flag to indicate that delete operations from this
		end are cascaded to the other end.
	*/
	End1IsCascading() bool

	/*
		End2Key returns the key of the second end of this edge.
	*/
	End2Key() string

	/*
		End2Kind returns the kind of the second end of this edge.
	*/
	End2Kind() string

	/*
		End2Role returns the role of the second end of this edge.
	*/
	End2Role() string

	/*
		End2IsCascading is a flag to indicate that delete operations from this
		end are cascaded to the other end.
	*/
	End2IsCascading() bool

	/*
		Spec returns the spec for this edge from the view of a specified endpoint.
		A spec is always of the form: <End Role>:<Kind>:<Other end role>:<Other end kind>
	*/
	Spec(key string) string

	/*
		OtherEndKey returns the key of the endpoint which is on the other side
		from the given key.
	*/
	OtherEndKey(key string) string

	/*
		OtherEndKind returns the kind of the endpoint which is on the other side
		from the given key.
	*/
	OtherEndKind(key string) string
}

/*
EdgeEnd1Key is the key of the first end
*/
const EdgeEnd1Key = "end1key"

/*
EdgeEnd1Kind is the kind of the first end
*/
const EdgeEnd1Kind = "end1kind"

/*
EdgeEnd1Role is the role of the first end
*/
const EdgeEnd1Role = "end1role"

/*
EdgeEnd1Cascading is the flag to cascade delete operations from the first end
*/
const EdgeEnd1Cascading = "end1cascading"

/*
EdgeEnd2Key is the key of the second end
*/
const EdgeEnd2Key = "end2key"

/*
EdgeEnd2Kind is the kind of the second end
*/
const EdgeEnd2Kind = "end2kind"

/*
EdgeEnd2Role is the role of the second end
*/
const EdgeEnd2Role = "end2role"

/*
EdgeEnd2Cascading is the flag to cascade delete operations from the second end
*/
const EdgeEnd2Cascading = "end2cascading"

/*
graphEdge data structure.
*/
type graphEdge struct {
	*graphNode
}

/*
NewGraphEdge creates a new Edge instance.
*/
func NewGraphEdge() Edge {
	return &graphEdge{&graphNode{make(map[string]interface{})}}
}

/*
NewGraphEdgeFromNode creates a new Edge instance from a given Node.
*/
func NewGraphEdgeFromNode(node Node) Edge {
	if node == nil {
		return nil
	}
	return &graphEdge{&graphNode{node.Data()}}
}

/*
NewGraphEdgeBetween creates a new Edge instance of a given kind and key
which connects two given nodes. The first end is the controlling end -
cascading from the first end means removing the first end node also
removes the second end node.
*/
func NewGraphEdgeBetween(key string, kind string, end1role string, end1 Node,
	end2role string, end2 Node, cascadeFromEnd1 bool) Edge {

	edge := NewGraphEdge()

	edge.SetAttr(NodeKey, key)
	edge.SetAttr(NodeKind, kind)

	edge.SetAttr(EdgeEnd1Key, end1.Key())
	edge.SetAttr(EdgeEnd1Kind, end1.Kind())
	edge.SetAttr(EdgeEnd1Role, end1role)
	edge.SetAttr(EdgeEnd1Cascading, cascadeFromEnd1)

	edge.SetAttr(EdgeEnd2Key, end2.Key())
	edge.SetAttr(EdgeEnd2Kind, end2.Kind())
	edge.SetAttr(EdgeEnd2Role, end2role)
	edge.SetAttr(EdgeEnd2Cascading, false)

	return edge
}

/*
End1Key returns the key of the first end of this edge.
*/
func (ge *graphEdge) End1Key() string {
	return ge.stringAttr(EdgeEnd1Key)
}

/*
End1Kind returns the kind of the first end of this edge.
*/
func (ge *graphEdge) End1Kind() string {
	return ge.stringAttr(EdgeEnd1Kind)
}

/*
End1Role returns the role of the first end of this edge.
*/
func (ge *graphEdge) End1Role() string {
	return ge.stringAttr(EdgeEnd1Role)
}

/*
End1IsCascading is a flag to indicate that delete operations from this
end are cascaded to the other end.
*/
func (ge *graphEdge) End1IsCascading() bool {
	a := ge.Attr(EdgeEnd1Cascading)
	return a != nil && a.(bool)
}

/*
End2Key returns the key of the second end of this edge.
*/
func (ge *graphEdge) End2Key() string {
	return ge.stringAttr(EdgeEnd2Key)
}

/*
End2Kind returns the kind of the second end of this edge.
*/
func (ge *graphEdge) End2Kind() string {
	return ge.stringAttr(EdgeEnd2Kind)
}

/*
End2Role returns the role of the second end of this edge.
*/
func (ge *graphEdge) End2Role() string {
	return ge.stringAttr(EdgeEnd2Role)
}

/*
End2IsCascading is a flag to indicate that delete operations from this
end are cascaded to the other end.
*/
func (ge *graphEdge) End2IsCascading() bool {
	a := ge.Attr(EdgeEnd2Cascading)
	return a != nil && a.(bool)
}

/*
Spec returns the spec for this edge from the view of a specified endpoint.
A spec is always of the form: <End Role>:<Kind>:<Other end role>:<Other end kind>
*/
func (ge *graphEdge) Spec(key string) string {
	if key == ge.End1Key() {
		return fmt.Sprintf("%s:%s:%s:%s", ge.End1Role(), ge.Kind(), ge.End2Role(), ge.End2Kind())
	} else if key == ge.End2Key() {
		return fmt.Sprintf("%s:%s:%s:%s", ge.End2Role(), ge.Kind(), ge.End1Role(), ge.End1Kind())
	}
	return ""
}

/*
OtherEndKey returns the key of the endpoint which is on the other side
from the given key.
*/
func (ge *graphEdge) OtherEndKey(key string) string {
	if key == ge.End1Key() {
		return ge.End2Key()
	} else if key == ge.End2Key() {
		return ge.End1Key()
	}
	return ""
}

/*
OtherEndKind returns the kind of the endpoint which is on the other side
from the given key.
*/
func (ge *graphEdge) OtherEndKind(key string) string {
	if key == ge.End1Key() {
		return ge.End2Kind()
	} else if key == ge.End2Key() {
		return ge.End1Kind()
	}
	return ""
}

/*
String returns a string representation of this edge.
*/
func (ge *graphEdge) String() string {
	return dataToString("GraphEdge", ge.graphNode)
}
