package main

import (
	"os"

	"github.com/satriahrh/cocoa-fruit/voicechat/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
