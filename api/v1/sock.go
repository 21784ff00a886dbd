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
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/krotik/common/cryptutil"
	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/stringutil"
	"github.com/krotik/ecal/engine"
	"github.com/krotik/ecal/scope"
	"github.com/krotik/weave/api"
	"github.com/krotik/weave/ecal"
	"github.com/krotik/weave/render"
)

/*
EndpointSock is the ECAL endpoint URL (rooted) for websocket operations. Handles everything under sock/...
*/
const EndpointSock = api.APIRoot + APIv1 + "/sock/"

/*
upgrader can upgrade normal requests to websocket communications
*/
var sockUpgrader = websocket.Upgrader{
	Subprotocols:    []string{"ecal-sock"},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var sockCallbackError error

/*
SockEndpointInst creates a new endpoint handler.
*/
func SockEndpointInst() api.RestEndpointHandler {
	return &sockEndpoint{}
}

/*
Handler object for ECAL websocket operations.
*/
type sockEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET handles ECAL websocket operations. A page query parameter
requests an initial page message with the rendered markup of that page.
*/
func (e *sockEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	if api.SI == nil {
		http.Error(w, "Resource was not found", http.StatusNotFound)
		return
	}

	// Update the incomming connection to a websocket
	// If the upgrade fails then the client gets an HTTP error response.

	conn, err := sockUpgrader.Upgrade(w, r, nil)
	if err != nil {

		// We give details here on what went wrong

		w.Write([]byte(err.Error()))
		return
	}

	commID := fmt.Sprintf("%x", cryptutil.GenerateUUID())

	wc := ecal.NewWebsocketConnection(commID, conn)

	wc.Init()

	if page := r.URL.Query().Get("page"); page != "" {
		e.pushRenderedPage(wc, r, page)
	}

	body, err := ioutil.ReadAll(r.Body)

	if err == nil {
		err = e.eventLoop(wc, r, resources, commID, body)
	}

	if err != nil {
		wc.Close(err.Error())
		api.SI.Interpreter.RuntimeProvider.Logger.LogDebug(err)
	}
}

/*
pushRenderedPage sends the rendered markup of a page as a page message.
Render errors are reported as data messages so the websocket stays open.
*/
func (e *sockEndpoint) pushRenderedPage(wc *ecal.WebsocketConnection, r *http.Request, page string) {

	if api.MM == nil {
		wc.WriteData(map[string]interface{}{
			"error": "No entity model available",
		})
		return
	}

	ctx := render.NewContext(api.MM, requestPrincipal(r), render.ModeNone)

	res, err := ctx.RenderPage(page)
	if err != nil {
		wc.WriteData(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	wc.WritePage(page, res)
}

/*
eventLoop registers the websocket with the scripting interpreter and
translates incoming messages into events until the client closes the
connection.
*/
func (e *sockEndpoint) eventLoop(wc *ecal.WebsocketConnection, r *http.Request,
	resources []string, commID string, body []byte) error {

	var data interface{}
	json.Unmarshal(body, &data)

	query := map[interface{}]interface{}{}
	for k, v := range r.URL.Query() {
		values := make([]interface{}, 0)
		for _, val := range v {
			values = append(values, val)
		}
		query[k] = values
	}

	header := map[interface{}]interface{}{}
	for k, v := range r.Header {
		header[k] = scope.ConvertJSONToECALObject(v)
	}

	proc := api.SI.Interpreter.RuntimeProvider.Processor
	event := engine.NewEvent(fmt.Sprintf("WebSocketRequest"), []string{"db", "web", "sock"},
		map[interface{}]interface{}{
			"commID":     commID,
			"path":       strings.Join(resources, "/"),
			"pathList":   resources,
			"bodyString": string(body),
			"bodyJSON":   scope.ConvertJSONToECALObject(data),
			"query":      query,
			"method":     r.Method,
			"header":     header,
		})

	// Add event that the websocket has been registered

	if _, err := proc.AddEventAndWait(event, nil); err != nil {
		return err
	}

	api.SI.RegisterECALSock(wc)
	defer func() {
		api.SI.DeregisterECALSock(wc)
	}()

	for {
		var fatal bool
		var data map[string]interface{}
		var err error

		// Read websocket message

		if data, fatal, err = wc.ReadData(); err != nil {

			wc.WriteData(map[string]interface{}{
				"error": err.Error(),
			})

			if fatal {
				return err
			}

			continue
		}

		if val, ok := data["close"]; ok && stringutil.IsTrueValue(fmt.Sprint(val)) {
			wc.Close("")
			return nil
		}

		event = engine.NewEvent(fmt.Sprintf("WebSocketRequest"), []string{"db", "web", "sock", "data"},
			map[interface{}]interface{}{
				"commID":   commID,
				"path":     strings.Join(resources, "/"),
				"pathList": resources,
				"query":    query,
				"method":   r.Method,
				"header":   header,
				"data":     scope.ConvertJSONToECALObject(data),
			})

		_, err = proc.AddEvent(event, nil)
		errorutil.AssertOk(err)
	}
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (e *sockEndpoint) SwaggerDefs(s map[string]interface{}) {
	// No swagger definitions for this endpoint as it only handles websocket requests
}
