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
	"fmt"
	"sort"

	"github.com/krotik/weave/model/convert"
)

/*
Property describes a single registered property of an entity kind.
*/
type Property struct {
	Name           string            // Name of the property
	Converter      convert.Converter // Converter between domain and stored values
	Indexed        bool              // Flag if the property should be indexed
	ReadOnly       bool              // Flag if the property can only be read
	SystemInternal bool              // Flag if the property is system managed
}

/*
Cardinality is the declared multiplicity constraint of a relation.
*/
type Cardinality int

/*
Possible cardinalities of a relation
*/
const (
	OneToOne Cardinality = iota
	OneToMany
	ManyToOne
	ManyToMany
)

/*
Direction is the declared direction of a relation relative to its source
kind.
*/
type Direction int

/*
Possible directions of a relation
*/
const (
	Outgoing Direction = iota
	Incoming
)

/*
Relation describes a typed, directed, cardinality constrained relationship
between two entity kinds.
*/
type Relation struct {
	Name          string               // Name under which the relation is registered
	Kind          string               // Edge kind of relationships of this relation
	SourceKind    string               // Kind of the source entity
	TargetKind    string               // Kind (or trait) of the target entity
	SourceRole    string               // Role of the source end
	TargetRole    string               // Role of the target end
	Direction     Direction            // Direction relative to the source kind
	Cardinality   Cardinality          // Multiplicity constraint
	CascadeDelete bool                 // Flag if removing the source removes the target
	OrderAttr     string               // Edge attribute which orders related nodes
	Properties    map[string]*Property // Registered relationship properties
}

/*
entityKind is a registered entity kind with its traits and properties.
*/
type entityKind struct {
	name       string
	traits     map[string]string
	properties map[string]*Property
}

/*
Registry is the process-wide schema registry of the entity layer. It is
built once at startup and passed by reference to all consumers. Kinds are
composed of traits instead of forming a type hierarchy, a kind is
assignable to any of its traits. Registration is not safe for concurrent
use, lookups after construction are read-only and safe.
*/
type Registry struct {
	kinds     map[string]*entityKind
	relations map[string]*Relation
}

/*
NewRegistry creates a new empty schema registry.
*/
func NewRegistry() *Registry {
	return &Registry{make(map[string]*entityKind), make(map[string]*Relation)}
}

/*
RegisterKind registers an entity kind with a set of traits and property
definitions. Registering an existing kind again replaces it.
*/
func (r *Registry) RegisterKind(name string, traits []string, props ...*Property) error {

	if name == "" {
		return &ModelError{ErrInvalidData, "Kind name must not be empty"}
	}

	ek := &entityKind{name, make(map[string]string), make(map[string]*Property)}

	for _, t := range traits {
		ek.traits[t] = t
	}

	for _, p := range props {
		if p.Converter == nil {
			return &ModelError{ErrInvalidData,
				fmt.Sprintf("Property %v of kind %v has no converter", p.Name, name)}
		}
		ek.properties[p.Name] = p
	}

	r.kinds[name] = ek

	return nil
}

/*
RegisterRelation registers a relation descriptor. Source and target kinds
must be known, the target may also be a registered trait.
*/
func (r *Registry) RegisterRelation(rel *Relation) error {

	if rel.Name == "" || rel.Kind == "" {
		return &ModelError{ErrInvalidData, "Relation name and kind must not be empty"}
	}

	if _, ok := r.kinds[rel.SourceKind]; !ok {
		return &ModelError{ErrInvalidData,
			fmt.Sprintf("Unknown source kind: %v", rel.SourceKind)}
	}

	if !r.KnownKindOrTrait(rel.TargetKind) {
		return &ModelError{ErrInvalidData,
			fmt.Sprintf("Unknown target kind: %v", rel.TargetKind)}
	}

	r.relations[rel.Name] = rel

	return nil
}

/*
Relation looks up a registered relation by name.
*/
func (r *Registry) Relation(name string) *Relation {
	return r.relations[name]
}

/*
Relations returns the names of all registered relations.
*/
func (r *Registry) Relations() []string {
	ret := make([]string, 0, len(r.relations))

	for name := range r.relations {
		ret = append(ret, name)
	}

	sort.StringSlice(ret).Sort()

	return ret
}

/*
Kinds returns the names of all registered entity kinds.
*/
func (r *Registry) Kinds() []string {
	ret := make([]string, 0, len(r.kinds))

	for name := range r.kinds {
		ret = append(ret, name)
	}

	sort.StringSlice(ret).Sort()

	return ret
}

/*
KnownKind checks if a kind is registered.
*/
func (r *Registry) KnownKind(kind string) bool {
	_, ok := r.kinds[kind]
	return ok
}

/*
KnownKindOrTrait checks if a name is a registered kind or a trait of a
registered kind.
*/
func (r *Registry) KnownKindOrTrait(name string) bool {

	if _, ok := r.kinds[name]; ok {
		return true
	}

	for _, ek := range r.kinds {
		if _, ok := ek.traits[name]; ok {
			return true
		}
	}

	return false
}

/*
Property looks up a registered property of a kind. Returns nil if either
the kind or the property is unknown.
*/
func (r *Registry) Property(kind string, name string) *Property {

	if ek, ok := r.kinds[kind]; ok {
		return ek.properties[name]
	}

	return nil
}

/*
Traits returns the traits of a registered kind.
*/
func (r *Registry) Traits(kind string) []string {

	ek, ok := r.kinds[kind]
	if !ok {
		return nil
	}

	ret := make([]string, 0, len(ek.traits))

	for t := range ek.traits {
		ret = append(ret, t)
	}

	sort.StringSlice(ret).Sort()

	return ret
}

/*
IsAssignable checks if an entity of a given kind can stand in for a target
kind. A kind is assignable to itself and to each of its traits.
*/
func (r *Registry) IsAssignable(kind string, target string) bool {

	if kind == target {
		return true
	}

	if ek, ok := r.kinds[kind]; ok {
		if _, ok := ek.traits[target]; ok {
			return true
		}
	}

	return false
}
