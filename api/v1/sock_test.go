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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/krotik/common/errorutil"
	"github.com/krotik/ecal/cli/tool"
	"github.com/krotik/ecal/engine"
	"github.com/krotik/ecal/util"
	"github.com/krotik/weave/api"
)

func TestECALSockConnectionErrors(t *testing.T) {
	queryURL := "http://localhost" + TESTPORT + EndpointSock

	_, _, res := sendTestRequest(queryURL+"foo?bar=123", "GET", nil)

	if res != `Bad Request
websocket: the client is not using the websocket protocol: 'upgrade' token not found in 'Connection' header` {
		t.Error("Unexpected response:", res)
		return
	}

	oldSI := api.SI
	api.SI = nil
	defer func() {
		api.SI = oldSI
	}()

	_, _, res = sendTestRequest(queryURL+"foo?bar=123", "GET", nil)

	if res != `Resource was not found` {
		t.Error("Unexpected response:", res)
		return
	}
}

func TestECALSock(t *testing.T) {
	queryURL := "ws://localhost" + TESTPORT + EndpointSock + "foo?bar=123"
	lastUUID := ""
	var lastDataEvent *engine.Event

	resetSI()
	api.SI.Interpreter = tool.NewCLIInterpreter()
	testScriptDir := "testscripts"
	api.SI.Interpreter.Dir = &testScriptDir
	errorutil.AssertOk(api.SI.Interpreter.CreateRuntimeProvider("weave-runtime"))
	logger := util.NewMemoryLogger(10)
	api.SI.Interpreter.RuntimeProvider.Logger = logger

	errorutil.AssertOk(api.SI.Interpreter.RuntimeProvider.Processor.AddRule(&engine.Rule{
		Name:            "WebSocketRegister",                 // Name
		Desc:            "Handles a websocket communication", // Description
		KindMatch:       []string{"db.web.sock"},             // Kind match
		ScopeMatch:      []string{},
		StateMatch:      nil,
		Priority:        0,
		SuppressionList: nil,
		Action: func(p engine.Processor, m engine.Monitor, e *engine.Event, tid uint64) error {
			lastUUID = fmt.Sprint(e.State()["commID"])
			return nil
		},
	}))

	wg := &sync.WaitGroup{}

	errorutil.AssertOk(api.SI.Interpreter.RuntimeProvider.Processor.AddRule(&engine.Rule{
		Name:            "WebSocketHandler",                  // Name
		Desc:            "Handles a websocket communication", // Description
		KindMatch:       []string{"db.web.sock.data"},        // Kind match
		ScopeMatch:      []string{},
		StateMatch:      nil,
		Priority:        0,
		SuppressionList: nil,
		Action: func(p engine.Processor, m engine.Monitor, e *engine.Event, tid uint64) error {
			lastDataEvent = e
			wg.Done()
			return nil
		},
	}))

	api.SI.Interpreter.RuntimeProvider.Processor.Start()
	defer api.SI.Interpreter.RuntimeProvider.Processor.Finish()

	// Now do the actual testing

	c, _, err := websocket.DefaultDialer.Dial(queryURL, nil)
	if err != nil {
		t.Error("Could not open websocket:", err)
		return
	}

	_, message, err := c.ReadMessage()

	var initMsg map[string]interface{}

	if jerr := json.Unmarshal(message, &initMsg); err != nil || jerr != nil ||
		initMsg["type"] != "init_success" || initMsg["commID"] == nil || initMsg["commID"] == "" {
		t.Error("Unexpected response:", string(message), err)
		return
	}

	err = c.WriteMessage(websocket.TextMessage, []byte("buu"))
	if err != nil {
		t.Error("Could not send message:", err)
		return
	}

	_, message, err = c.ReadMessage()
	if msg := formatJSONString(string(message)); err != nil || msg != `{
  "commID": "`+lastUUID+`",
  "payload": {
    "error": "invalid character 'b' looking for beginning of value"
  },
  "type": "data"
}` {
		t.Error("Unexpected response:", msg, err)
		return
	}

	wg.Add(1)

	err = c.WriteMessage(websocket.TextMessage, []byte(`{"foo":"bar"}`))
	if err != nil {
		t.Error("Could not send message:", err)
		return
	}

	wg.Wait()

	if data := lastDataEvent.State()["data"]; err != nil || fmt.Sprint(data) != `map[foo:bar]` {
		t.Error("Unexpected response:", data, err)
		return
	}

	err = c.WriteMessage(websocket.TextMessage, []byte(`{"close":true}`))
	if err != nil {
		t.Error("Could not send message:", err)
		return
	}

	// A page parameter requests an initial rendered page message

	entityURL := "http://localhost" + TESTPORT + EndpointEntity
	sendTestRequest(entityURL+"weaveelement/sockpage", "POST", []byte(`{"tag": "div"}`))
	sendTestRequest(entityURL+"weavecontent/socktext", "POST", []byte(`{"content": "Live"}`))

	relURL := "http://localhost" + TESTPORT + EndpointRelation
	sendTestRequest(relURL+"weavecontains/sockpage", "POST",
		[]byte(`{"target": "socktext", "targetkind": "weavecontent"}`))

	c2, _, err := websocket.DefaultDialer.Dial(queryURL+"&page=sockpage", nil)
	if err != nil {
		t.Error("Could not open websocket:", err)
		return
	}

	if _, _, err = c2.ReadMessage(); err != nil {
		t.Error("Could not read init message:", err)
		return
	}

	_, message, err = c2.ReadMessage()

	var pageMsg map[string]interface{}

	if jerr := json.Unmarshal(message, &pageMsg); err != nil || jerr != nil {
		t.Error("Unexpected response:", string(message), err)
		return
	}

	payload, ok := pageMsg["payload"].(map[string]interface{})

	if !ok || pageMsg["type"] != "page" || payload["key"] != "sockpage" ||
		payload["markup"] != "<div>Live</div>" {
		t.Error("Unexpected response:", string(message))
		return
	}

	err = c2.WriteMessage(websocket.TextMessage, []byte(`{"close":true}`))
	if err != nil {
		t.Error("Could not send message:", err)
		return
	}

	// Reset the connection and provoke an error

	c, _, err = websocket.DefaultDialer.Dial(queryURL, nil)
	if err != nil {
		t.Error("Could not open websocket:", err)
		return
	}

	c.Close()

	for {

		if logger.Size() > 0 {
			break
		}

		time.Sleep(10 * time.Millisecond)
	}

	if !strings.Contains(logger.String(), "unexpected EOF") && !strings.Contains(logger.String(), "connection reset by peer") {
		t.Error("Unexpected log output:", logger.String())
		return
	}
}
