package main

import "github.com/bindcc-build/bindcc/cmd"

func main() {
	cmd.Execute()
}
