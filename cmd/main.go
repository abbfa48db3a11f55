package main

import (
	"github.com/scope-plugin/cmd/plugin"
)

func main() {
	plugin.Execute()
}
