package main

import "github.com/mcpherrinm/potwatch/cmd"

func main() {
	cmd.Execute()
}
