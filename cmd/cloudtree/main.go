// cloudtree - tree browser and downloader for rclone remotes.
package main

import (
	"os"

	"github.com/cloudtree/cloudtree/internal/cli"
	"github.com/cloudtree/cloudtree/internal/version"
)

// Version information, overridden by the release build:
//
//	go build -ldflags "-X main.Version=v1.3.0 -X main.BuildTime=2026-09-01" ./cmd/cloudtree
var (
	Version   = "v1.2.0"
	BuildTime = "2026-08-30"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
