package main

import (
	"github.com/anugrahthomas/video-room/internal/cli"
	"github.com/anugrahthomas/video-room/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}
