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
Package server contains the code for the Weave server.
*/
package server

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/fileutil"
	"github.com/krotik/common/httputil"
	"github.com/krotik/common/lockutil"
	"github.com/krotik/weave/api"
	v1 "github.com/krotik/weave/api/v1"
	"github.com/krotik/weave/config"
	"github.com/krotik/weave/ecal"
	"github.com/krotik/weave/graph"
	"github.com/krotik/weave/graph/graphstorage"
	"github.com/krotik/weave/model"
	"github.com/krotik/weave/render"
)

/*
Using custom consolelogger type so we can test log.Fatal calls with unit tests. Overwrite
these if the server should not call os.Exit on a fatal error.
*/
type consolelogger func(v ...interface{})

var fatal = consolelogger(log.Fatal)
var print = consolelogger(log.Print)

/*
Base path for all files (used by unit tests)
*/
var basepath = ""

/*
StartServer runs the Weave server. The server uses config.Config for all its
configuration parameters.
*/
func StartServer() {
	StartServerWithSingleOp(nil)
}

/*
StartServerWithSingleOp runs the Weave server. If the singleOperation function is
not nil then the server executes the function and exits if the function returns
true. Embedding applications can use the hook to register additional kinds and
relations on the entity manager before the API goes live.
*/
func StartServerWithSingleOp(singleOperation func(*model.Manager) bool) {
	var err error
	var gs graphstorage.Storage

	print(fmt.Sprintf("Weave %v", config.ProductVersion))

	// Ensure we have a configuration - use the default configuration if nothing was set

	if config.Config == nil {
		config.LoadDefaultConfig()
	}

	// Create graph storage

	if config.Bool(config.MemoryOnlyStorage) {

		print("Starting memory only datastore")

		gs = graphstorage.NewMemoryGraphStorage(config.MemoryOnlyStorage)

	} else {

		loc := filepath.Join(basepath, config.Str(config.LocationDatastore))

		print("Starting datastore in ", loc)

		// Ensure path for database exists

		ensurePath(loc)

		gs, err = graphstorage.NewDiskGraphStorage(loc)
		if err != nil {
			fatal(err)
			return
		}
	}

	// Create GraphManager and entity Manager

	print("Creating GraphManager instance")

	api.GM = graph.NewGraphManager(gs)

	print("Creating entity model instance")

	registry := model.NewRegistry()
	errorutil.AssertOk(render.RegisterSchema(registry))

	api.MM = model.NewManager(api.GM, registry, "main")

	defer func() {

		print("Closing datastore")

		if err := gs.Close(); err != nil {
			fatal(err)
			return
		}

		os.RemoveAll(filepath.Join(basepath, config.Str(config.LockFile)))
	}()

	// Handle single operation - these are operations which work on the
	// entity manager and then exit.

	if singleOperation != nil && singleOperation(api.MM) {
		return
	}

	// Setting other API parameters

	api.APIHost = config.Str(config.HTTPHost) + ":" + config.Str(config.HTTPPort)
	v1.ResultCacheMaxSize = uint64(config.Int(config.ResultCacheMaxSize))
	v1.ResultCacheMaxAge = config.Int(config.ResultCacheMaxAgeSeconds)

	// Start the ECAL scripting interpreter

	if config.Bool(config.EnableECALScripts) {

		scriptFolder := filepath.Join(basepath, config.Str(config.ECALScriptFolder))

		print("Loading ECAL scripts in ", scriptFolder)

		ensurePath(scriptFolder)

		si := ecal.NewScriptingInterpreter(scriptFolder, api.GM)
		si.MM = api.MM

		if err := si.Run(); err != nil {
			fatal("Could not start ECAL scripting interpreter:", err)
			return
		}

		api.SI = si
	}

	// Register REST endpoints

	api.RegisterRestEndpoints(api.GeneralEndpointMap)
	api.RegisterRestEndpoints(v1.V1EndpointMap)

	// Start HTTP server and enable REST API

	hs := &httputil.HTTPServer{}

	var wg sync.WaitGroup
	wg.Add(1)

	port := config.Str(config.HTTPPort)

	print("Starting server on: ", api.APIHost)

	go hs.RunHTTPServer(":"+port, &wg)

	// Wait until the server has started

	wg.Wait()

	// HTTP Server has started

	if hs.LastError != nil {
		fatal(hs.LastError)
		return
	}

	// Create a lockfile so the server can be shut down

	lf := lockutil.NewLockFile(basepath+config.Str(config.LockFile), time.Duration(2)*time.Second)

	lf.Start()

	go func() {

		// Check if the lockfile watcher is running and
		// call shutdown once it has finished

		for lf.WatcherRunning() {
			time.Sleep(time.Duration(1) * time.Second)
		}

		print("Lockfile was modified")

		hs.Shutdown()
	}()

	// Add to the wait group so we can wait for the shutdown

	wg.Add(1)

	print("Waiting for shutdown")
	wg.Wait()

	print("Shutting down")
}

/*
ensurePath ensures that a given relative path exists.
*/
func ensurePath(path string) {
	if res, _ := fileutil.PathExists(path); !res {
		if err := os.Mkdir(path, 0770); err != nil {
			fatal("Could not create directory:", err.Error())
			return
		}
	}
}
