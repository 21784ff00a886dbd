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
Weave is a web application framework core which stores its data as a graph.

Features:

- Entities are stored as graph nodes with registered kinds which convert
and validate their properties.

- Relations between entities are registered with cardinality constraints
which are enforced on the stored graph.

- Entities carry permissions, ownership and visibility windows which are
checked through graph based role resolution.

- Page entities can be rendered to HTML through a template placeholder
substitution engine.

- Server-side scripts can react to data and web events via ECAL.

- The database can be embedded or used as a standalone application.

- When used as a standalone application it comes with an internal HTTP
webserver which provides a REST API and websocket based live updates.
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/krotik/weave/config"
	"github.com/krotik/weave/model"
	"github.com/krotik/weave/server"
)

func main() {

	// Initialize the default command line parser

	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)

	// Define default usage message

	flag.Usage = func() {

		// Print usage for tool selection

		fmt.Println(fmt.Sprintf("Usage of %s <tool>", os.Args[0]))
		fmt.Println()
		fmt.Println("Weave graph based web application framework")
		fmt.Println()
		fmt.Println("Available commands:")
		fmt.Println()
		fmt.Println("    server    Start Weave server")
		fmt.Println()
		fmt.Println(fmt.Sprintf("Use %s <command> -help for more information about a given command.", os.Args[0]))
		fmt.Println()
	}

	// Parse the command bit

	err := flag.CommandLine.Parse(os.Args[1:])

	if len(flag.Args()) > 0 {

		arg := flag.Args()[0]

		if arg == "server" {
			config.LoadConfigFile(config.DefaultConfigFile)
			server.StartServerWithSingleOp(handleServerCommandLine)
		} else {
			flag.Usage()
		}

	} else if err == nil {

		flag.Usage()
	}
}

/*
handleServerCommandLine handles all command line options for the server
*/
func handleServerCommandLine(mm *model.Manager) bool {

	noServ := flag.Bool("no-serv", false, "Do not start the server after initialization")

	showHelp := flag.Bool("help", false, "Show this help message")

	flag.Usage = func() {
		fmt.Println()
		fmt.Println(fmt.Sprintf("Usage of %s server [options]", os.Args[0]))
		fmt.Println()
		flag.PrintDefaults()
		fmt.Println()
	}

	flag.CommandLine.Parse(os.Args[2:])

	if *showHelp {
		flag.Usage()
		return true
	}

	return *noServ
}
