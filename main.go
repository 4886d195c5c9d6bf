// Copyright © 2024 The Mago authors

package main

import "github.com/magophp/mago/cmd"

func main() {
	cmd.Execute()
}
