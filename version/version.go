// Package version holds build information, set through -ldflags -X.
package version

const Version = "0.1.0"

var (
	// Meta is a tag like "unstable" appended to Version.
	Meta   = "unstable"
	Commit = ""
	Date   = ""
)

func VersionWithMeta() string {
	if Meta == "" {
		return Version
	}
	return Version + "-" + Meta
}
