package main

import "github.com/kozaktomas/faceverify/cmd"

func main() {
	cmd.Execute()
}
