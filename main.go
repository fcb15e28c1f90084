// Package main is the entry point for the aniplay application.
package main

import (
	"github.com/aniplay-cli/aniplay/cmd"
	"github.com/aniplay-cli/aniplay/config"
	"github.com/aniplay-cli/aniplay/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
