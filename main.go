package main

import (
	"github.com/majerti/runbackup/cmd"
	"github.com/majerti/runbackup/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
