package main

import "github.com/emrgen/doctree/cmd"

func main() {
	cmd.Execute()
}
