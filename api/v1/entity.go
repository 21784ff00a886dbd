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
	"net/http"

	"github.com/krotik/weave/api"
)

/*
EndpointEntity is the entity endpoint URL (rooted). Handles everything under entity/...
*/
const EndpointEntity = api.APIRoot + APIv1 + "/entity/"

/*
EntityEndpointInst creates a new endpoint handler.
*/
func EntityEndpointInst() api.RestEndpointHandler {
	return &entityEndpoint{}
}

/*
Handler object for entity operations.
*/
type entityEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET handles an entity query REST call.
*/
func (ee *entityEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 2, 2, "Need a kind and a key") {
		return
	}

	ent, err := api.MM.FetchEntity(resources[0], resources[1])
	if err != nil {
		writeModelError(w, err)
		return
	}

	if !api.MM.ReadAllowed(requestPrincipal(r), ent) {
		http.Error(w, "Read access denied", http.StatusForbidden)
		return
	}

	node, err := api.MM.GraphManager().FetchNode(api.MM.Partition(), ent.Key(), ent.Kind())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Write data

	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(node.Data())
}

/*
HandlePOST handles a REST call to create a new entity.
*/
func (ee *entityEndpoint) HandlePOST(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 1, 2, "Need a kind and optionally a key") {
		return
	}

	props := map[string]interface{}{}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&props); err != nil {
		http.Error(w, "Could not decode request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	key := ""
	if len(resources) > 1 {
		key = resources[1]
	}

	ent, err := api.MM.NewEntity(resources[0], key)
	if err != nil {
		writeModelError(w, err)
		return
	}

	for k, v := range props {
		if err := ent.SetProperty(k, v); err != nil {
			writeModelError(w, err)
			return
		}
	}

	if err := ent.Commit(nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Write data

	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(map[string]interface{}{
		"key":       ent.Key(),
		"storageid": ent.StorageID(),
	})
}

/*
HandlePUT handles a REST call to update an existing entity.
*/
func (ee *entityEndpoint) HandlePUT(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 2, 2, "Need a kind and a key") {
		return
	}

	props := map[string]interface{}{}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&props); err != nil {
		http.Error(w, "Could not decode request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ent, err := api.MM.FetchEntity(resources[0], resources[1])
	if err != nil {
		writeModelError(w, err)
		return
	}

	if !api.MM.WriteAllowed(requestPrincipal(r), ent) {
		http.Error(w, "Write access denied", http.StatusForbidden)
		return
	}

	for k, v := range props {
		if err := ent.SetProperty(k, v); err != nil {
			writeModelError(w, err)
			return
		}
	}

	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(map[string]interface{}{
		"key": ent.Key(),
	})
}

/*
HandleDELETE handles a REST call to remove an entity.
*/
func (ee *entityEndpoint) HandleDELETE(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 2, 2, "Need a kind and a key") {
		return
	}

	ent, err := api.MM.FetchEntity(resources[0], resources[1])
	if err != nil {
		writeModelError(w, err)
		return
	}

	if err := api.MM.RemoveEntity(requestPrincipal(r), ent); err != nil {
		writeModelError(w, err)
		return
	}

	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(map[string]interface{}{
		"key": ent.Key(),
	})
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (ee *entityEndpoint) SwaggerDefs(s map[string]interface{}) {

	required := []map[string]interface{}{
		{
			"name":        "kind",
			"in":          "path",
			"description": "Kind of the entity.",
			"required":    true,
			"type":        "string",
		},
		{
			"name":        "key",
			"in":          "path",
			"description": "Key of the entity.",
			"required":    true,
			"type":        "string",
		},
	}

	s["paths"].(map[string]interface{})["/v1/entity/{kind}/{key}"] = map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     "Read an entity.",
			"description": "Read the stored attributes of an entity.",
			"produces": []string{
				"text/plain",
				"application/json",
			},
			"parameters": required,
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "The stored attributes of the entity.",
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
			"summary":     "Create an entity.",
			"description": "Create an entity with the given properties. Registered property converters are applied.",
			"produces": []string{
				"text/plain",
				"application/json",
			},
			"parameters": append(required, map[string]interface{}{
				"name":        "properties",
				"in":          "body",
				"description": "Properties of the new entity.",
				"required":    true,
				"schema": map[string]interface{}{
					"type": "object",
				},
			}),
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "Key and storage id of the created entity.",
				},
				"default": map[string]interface{}{
					"description": "Error response",
					"schema": map[string]interface{}{
						"$ref": "#/definitions/Error",
					},
				},
			},
		},
		"put": map[string]interface{}{
			"summary":     "Update an entity.",
			"description": "Update properties of a committed entity.",
			"produces": []string{
				"text/plain",
				"application/json",
			},
			"parameters": required,
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "Key of the updated entity.",
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
			"summary":     "Remove an entity.",
			"description": "Remove an entity and all its relationships.",
			"produces": []string{
				"text/plain",
				"application/json",
			},
			"parameters": required,
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "Key of the removed entity.",
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
