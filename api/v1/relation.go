/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/krotik/weave/api"
	"github.com/krotik/weave/model"
)

/*
EndpointRelation is the relation endpoint URL (rooted). Handles everything under relation/...
*/
const EndpointRelation = api.APIRoot + APIv1 + "/relation/"

/*
RelationEndpointInst creates a new endpoint handler.
*/
func RelationEndpointInst() api.RestEndpointHandler {
	return &relationEndpoint{}
}

/*
Handler object for relation operations.
*/
type relationEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET lists all entities related to a given source entity.
*/
func (re *relationEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	rel, source, ok := re.resolveSource(w, resources)
	if !ok {
		return
	}

	related, err := api.MM.RelatedNodes(requestPrincipal(r), rel.Name, source)
	if err != nil {
		writeModelError(w, err)
		return
	}

	res := make([]map[string]interface{}, 0, len(related))
	for _, ent := range related {
		res = append(res, map[string]interface{}{
			"key":  ent.Key(),
			"kind": ent.Kind(),
		})
	}

	// Write data

	w.Header().Set(HTTPHeaderTotalCount, fmt.Sprint(len(res)))
	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(res)
}

/*
HandlePOST creates a new relationship from a given source entity.
*/
func (re *relationEndpoint) HandlePOST(w http.ResponseWriter, r *http.Request, resources []string) {

	rel, source, ok := re.resolveSource(w, resources)
	if !ok {
		return
	}

	var body struct {
		Target     string                 `json:"target"`
		TargetKind string                 `json:"targetkind"`
		Properties map[string]interface{} `json:"properties"`
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		http.Error(w, "Could not decode request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if body.Target == "" {
		http.Error(w, "Need a target key in the request body", http.StatusBadRequest)
		return
	}

	var target interface{} = body.Target

	if body.TargetKind != "" {
		ent, err := api.MM.FetchEntity(body.TargetKind, body.Target)
		if err != nil {
			writeModelError(w, err)
			return
		}
		target = ent
	}

	relationship, err := api.MM.CreateRelationship(requestPrincipal(r), rel.Name,
		source, target, body.Properties)
	if err != nil {
		writeModelError(w, err)
		return
	}

	// Write data

	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(map[string]interface{}{
		"key":  relationship.Key(),
		"kind": relationship.Kind(),
	})
}

/*
HandleDELETE removes a relationship between a source and a target entity.
*/
func (re *relationEndpoint) HandleDELETE(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 3, 3, "Need a relation name, a source key and a target key") {
		return
	}

	rel, source, ok := re.resolveSource(w, resources[:2])
	if !ok {
		return
	}

	if err := api.MM.RemoveRelationship(requestPrincipal(r), rel.Name,
		source, resources[2]); err != nil {
		writeModelError(w, err)
		return
	}

	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(map[string]interface{}{
		"source": source.Key(),
		"target": resources[2],
	})
}

/*
resolveSource looks up the relation and the source entity of a request.
*/
func (re *relationEndpoint) resolveSource(w http.ResponseWriter, resources []string) (*model.Relation, *model.Entity, bool) {

	if !checkResources(w, resources, 2, 3, "Need a relation name and a source key") {
		return nil, nil, false
	}

	rel := api.MM.Registry().Relation(resources[0])
	if rel == nil {
		http.Error(w, "Unknown relation: "+resources[0], http.StatusBadRequest)
		return nil, nil, false
	}

	source, err := api.MM.FetchEntity(rel.SourceKind, resources[1])
	if err != nil {
		writeModelError(w, err)
		return nil, nil, false
	}

	return rel, source, true
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (re *relationEndpoint) SwaggerDefs(s map[string]interface{}) {

	required := []map[string]interface{}{
		{
			"name":        "name",
			"in":          "path",
			"description": "Name of the relation.",
			"required":    true,
			"type":        "string",
		},
		{
			"name":        "sourcekey",
			"in":          "path",
			"description": "Key of the source entity.",
			"required":    true,
			"type":        "string",
		},
	}

	s["paths"].(map[string]interface{})["/v1/relation/{name}/{sourcekey}"] = map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     "List related entities.",
			"description": "List all entities related to a source entity via a registered relation.",
			"produces": []string{
				"text/plain",
				"application/json",
			},
			"parameters": required,
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "List of related entities.",
				},
				"default": map[string]interface{}{
					"description": "Error response",
					"schema": map[string]interface{}{
						"$ref": "#/definitions/Error",
					},
				},
			},
		},
		"post": map[string]interface{}{
			"summary":     "Create a relationship.",
			"description": "Create a relationship from a source entity to a target entity. Conflicting relationships are removed according to the relation cardinality.",
			"produces": []string{
				"text/plain",
				"application/json",
			},
			"parameters": append(required, map[string]interface{}{
				"name":        "target",
				"in":          "body",
				"description": "Target of the new relationship.",
				"required":    true,
				"schema": map[string]interface{}{
					"type": "object",
				},
			}),
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "Key and kind of the created relationship.",
				},
				"default": map[string]interface{}{
					"description": "Error response",
					"schema": map[string]interface{}{
						"$ref": "#/definitions/Error",
					},
				},
			},
		},
		"delete": map[string]interface{}{
			"summary":     "Remove a relationship.",
			"description": "Remove the relationship between a source and a target entity.",
			"produces": []string{
				"text/plain",
				"application/json",
			},
			"parameters": append(required, map[string]interface{}{
				"name":        "targetkey",
				"in":          "path",
				"description": "Key of the target entity.",
				"required":    true,
				"type":        "string",
			}),
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "Source and target of the removed relationship.",
				},
				"default": map[string]interface{}{
					"description": "Error response",
					"schema": map[string]interface{}{
						"$ref": "#/definitions/Error",
					},
				},
			},
		},
	}

	// Add generic error object to definition

	s["definitions"].(map[string]interface{})["Error"] = map[string]interface{}{
		"description": "A human readable error mesage.",
		"type":        "string",
	}
}
