// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/skindl/skindl/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main start skindl cli
func main() {
	cmd.Run(version, commit, date)
}
