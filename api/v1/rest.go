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
Package v1 contains Weave REST API Version 1.

Entity endpoint

/entity/{kind}/{key}

The entity endpoint provides access to the entity layer of Weave. Entities
are addressed by kind and key. All writes go through registered property
converters and permission checks.

Relation endpoint

/relation/{name}/{sourcekey}

The relation endpoint creates, removes and lists relationships of a given
source entity. Relationship cardinality is enforced on creation.

Render endpoint

/render/{pagekey}

The render endpoint renders a page element tree to markup. The render mode
can be given as a query parameter.

Sock endpoint

/sock/

The sock endpoint upgrades the connection to a websocket which is connected
to the scripting layer.
*/
package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/krotik/weave/api"
	"github.com/krotik/weave/model"
)

/*
APIv1 is the directory for version 1 of the API
*/
const APIv1 = "/v1"

/*
HTTPHeaderTotalCount is a special header value containing the total count of objects.
*/
const HTTPHeaderTotalCount = "X-Total-Count"

/*
HTTPHeaderPrincipal is a special header value containing the principal of a request.
*/
const HTTPHeaderPrincipal = "X-Weave-User"

/*
V1EndpointMap is a map of urls to endpoints for version 1 of the API
*/
var V1EndpointMap = map[string]api.RestEndpointInst{
	EndpointEntity:   EntityEndpointInst,
	EndpointRelation: RelationEndpointInst,
	EndpointRender:   RenderEndpointInst,
	EndpointSock:     SockEndpointInst,
}

// Helper functions
// ================

/*
checkResources check given resources for a GET request.
*/
func checkResources(w http.ResponseWriter, resources []string, requiredMin int, requiredMax int, errorMsg string) bool {
	if len(resources) < requiredMin {
		http.Error(w, errorMsg, http.StatusBadRequest)
		return false
	} else if len(resources) > requiredMax {
		http.Error(w, "Invalid resource specification: "+strings.Join(resources[1:], "/"), http.StatusBadRequest)
		return false
	}
	return true
}

/*
Extract a positive number from a query parameter. Returns -1 and true
if the parameter was not given.
*/
func queryParamPosNum(w http.ResponseWriter, r *http.Request, param string) (int, bool) {

	val := r.URL.Query().Get(param)

	if val == "" {
		return -1, true
	}

	num, err := strconv.Atoi(val)

	if err != nil || num < 0 {
		http.Error(w, "Invalid parameter value: "+param+" should be a positive integer number", http.StatusBadRequest)
		return -1, false
	}

	return num, true
}

/*
requestPrincipal extracts the principal of a request. Without an explicit
principal header the request runs with full access.
*/
func requestPrincipal(r *http.Request) model.Principal {

	if name := r.Header.Get(HTTPHeaderPrincipal); name != "" {
		return model.NewPrincipal(name, "user", false)
	}

	return model.NewPrincipal("rest", "internal", true)
}

/*
writeModelError writes a model layer error with the right HTTP status.
*/
func writeModelError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	if me, ok := err.(*model.ModelError); ok {
		switch me.Type {
		case model.ErrNotFound:
			status = http.StatusNotFound
		case model.ErrDenied:
			status = http.StatusForbidden
		case model.ErrInvalidData:
			status = http.StatusBadRequest
		}
	}

	http.Error(w, err.Error(), status)
}
