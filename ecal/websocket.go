/*
 * Weave
 *
 * Copyright 2020 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ecal

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

/*
Message types of websocket messages sent to clients. Every message is a
JSON object with the fields commID, type and payload.
*/
const (
	MsgInit = "init_success" // Handshake message after a successful upgrade
	MsgData = "data"         // Payload data from a script event
	MsgPage = "page"         // Rendered page markup after a page or edit update
)

/*
WebsocketConnection is a single websocket connection to a client.

Websocket connections support one concurrent reader and one concurrent writer.
See: https://godoc.org/github.com/gorilla/websocket#hdr-Concurrency
*/
type WebsocketConnection struct {
	CommID string
	Conn   *websocket.Conn

	rmutex sync.Mutex
	wmutex sync.Mutex
}

/*
NewWebsocketConnection creates a new WebsocketConnection object.
*/
func NewWebsocketConnection(commID string, c *websocket.Conn) *WebsocketConnection {
	return &WebsocketConnection{CommID: commID, Conn: c}
}

/*
Init sends the handshake message over the websocket connection.
*/
func (wc *WebsocketConnection) Init() {
	wc.write(MsgInit, map[string]interface{}{})
}

/*
ReadData reads a JSON object from the websocket connection. The flag
indicates if a read error was fatal for the connection.
*/
func (wc *WebsocketConnection) ReadData() (map[string]interface{}, bool, error) {
	var data map[string]interface{}
	var fatal = true

	wc.rmutex.Lock()
	_, msg, err := wc.Conn.ReadMessage()
	wc.rmutex.Unlock()

	if err == nil {
		fatal = false
		err = json.Unmarshal(msg, &data)
	}

	return data, fatal, err
}

/*
WriteData writes a data message to the websocket.
*/
func (wc *WebsocketConnection) WriteData(data map[string]interface{}) {
	wc.write(MsgData, data)
}

/*
WritePage writes rendered page markup to the websocket. Page messages are
sent when a page was requested over the socket and when scripts push a
re-render after an edit.
*/
func (wc *WebsocketConnection) WritePage(key string, markup string) {
	wc.write(MsgPage, map[string]interface{}{
		"key":    key,
		"markup": markup,
	})
}

/*
write sends a message of a given type to the client.
*/
func (wc *WebsocketConnection) write(msgType string, payload map[string]interface{}) {
	wc.wmutex.Lock()
	defer wc.wmutex.Unlock()

	jsonData, _ := json.Marshal(map[string]interface{}{
		"commID":  wc.CommID,
		"type":    msgType,
		"payload": payload,
	})

	wc.Conn.WriteMessage(websocket.TextMessage, jsonData)
}

/*
Close closes the websocket connection.
*/
func (wc *WebsocketConnection) Close(msg string) {
	wc.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(
			websocket.CloseNormalClosure, msg), time.Now().Add(10*time.Second))

	wc.Conn.Close()
}
