// Package version holds build metadata. Version and Commit are set with
// -ldflags at build time.
package version

var (
	AppName = "speakbot"
	Version = "dev"
	Commit  = "none"
)

func String() string {
	return AppName + " " + Version + " (" + Commit + ")"
}
