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
	"fmt"
	"net/http"

	"github.com/krotik/common/datautil"

	"github.com/krotik/weave/api"
	"github.com/krotik/weave/render"
)

/*
EndpointRender is the render endpoint URL (rooted). Handles everything under render/...
*/
const EndpointRender = api.APIRoot + APIv1 + "/render/"

/*
ResultCacheMaxSize is the maximum size for the render result cache
*/
var ResultCacheMaxSize uint64

/*
ResultCacheMaxAge is the maximum age a render result cache entry can have in seconds
*/
var ResultCacheMaxAge int64

/*
ResultCache is the cache for rendered pages (per page key and mode)
*/
var ResultCache *datautil.MapCache

/*
RenderEndpointInst creates a new endpoint handler.
*/
func RenderEndpointInst() api.RestEndpointHandler {

	// Init the result cache if necessary

	if ResultCache == nil {
		ResultCache = datautil.NewMapCache(ResultCacheMaxSize, ResultCacheMaxAge)
	}

	return &renderEndpoint{}
}

/*
Handler object for render operations.
*/
type renderEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET renders a page element tree to markup.
*/
func (re *renderEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 1, 1, "Need a page key") {
		return
	}

	mode, ok := queryParamPosNum(w, r, "mode")
	if !ok {
		return
	}

	if mode == -1 {
		mode = render.ModeNone
	}

	cacheKey := fmt.Sprintf("%v#%v", resources[0], mode)

	if ResultCacheMaxSize > 0 {
		if res, ok := ResultCache.Get(cacheKey); ok {
			w.Header().Set("content-type", "text/html; charset=utf-8")
			fmt.Fprint(w, res)
			return
		}
	}

	ctx := render.NewContext(api.MM, requestPrincipal(r), mode)

	res, err := ctx.RenderPage(resources[0])
	if err != nil {
		if rerr, ok := err.(*render.RenderError); ok && rerr.Type == render.ErrNotFound {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if ResultCacheMaxSize > 0 {
		ResultCache.Put(cacheKey, res)
	}

	// Write data

	w.Header().Set("content-type", "text/html; charset=utf-8")
	fmt.Fprint(w, res)
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (re *renderEndpoint) SwaggerDefs(s map[string]interface{}) {

	s["paths"].(map[string]interface{})["/v1/render/{pagekey}"] = map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     "Render a page.",
			"description": "Render a page element tree to markup.",
			"produces": []string{
				"text/plain",
				"text/html",
			},
			"parameters": []map[string]interface{}{
				{
					"name":        "pagekey",
					"in":          "path",
					"description": "Key of the page element to render.",
					"required":    true,
					"type":        "string",
				},
				{
					"name":        "mode",
					"in":          "query",
					"description": "Render mode.",
					"required":    false,
					"type":        "number",
					"format":      "integer",
				},
			},
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "The rendered markup of the page.",
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
