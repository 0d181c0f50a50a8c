//
// Date: 2026-02-14
// Copyright (c) 2026. All rights reserved.
//

package main

import (
	"github.com/cloudmanic/tvstream/cmd"
)

// main is the entry point for the tvstream CLI application. It delegates
// all command parsing and execution to the cobra command framework.
func main() {
	cmd.Execute()
}
