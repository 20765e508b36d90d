/*
	Copyright 2024 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/trainrace/cmd"

func main() {
	cmd.Execute()
}
