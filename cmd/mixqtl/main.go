// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import "github.com/tashkeev-alex/mixqtl"

func main() {
	mixqtl.Main()
}
