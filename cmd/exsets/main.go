// Copyright (C) The exsets Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"github.com/cbiolab/exsets"
)

func main() {
	exsets.Main()
}
