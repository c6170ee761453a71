package main

import (
	"github.com/rumsystem/mstnode/cmd"
	"github.com/rumsystem/mstnode/internal/pkg/utils"
)

var (
	ReleaseVersion string
	GitCommit      string
)

// @title Mstnode Api
// @version 1.0
// @description Mstnode Api Docs
// @BasePath /
func main() {
	if ReleaseVersion == "" {
		ReleaseVersion = "v1.0.0"
	}
	if GitCommit == "" {
		GitCommit = "devel"
	}
	utils.SetGitCommit(GitCommit)
	utils.SetVersion(ReleaseVersion)

	cmd.Execute()
}
