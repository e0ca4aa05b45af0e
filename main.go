package main

import (
	"github.com/peercall/peercall/cmd"
	"github.com/peercall/peercall/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
