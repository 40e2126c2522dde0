// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/confweave/confweave/cmd/confweave"

func main() {
	cmd.Execute()
}
