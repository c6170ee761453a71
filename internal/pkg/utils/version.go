package utils

var (
	ReleaseVersion string
	GitCommit      string
)

func SetGitCommit(hash string) {
	GitCommit = hash
}

func SetVersion(version string) {
	ReleaseVersion = version
}

func GetVersion() string {
	return ReleaseVersion + " - " + GitCommit
}
