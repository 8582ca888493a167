// Package version reports what build of uccn is running. Both values are
// injected at link time, for example:
//
//	go build -ldflags "-X github.com/uccn-net/uccn-go/src/version.buildVersion=v0.3.1"
package version

import "fmt"

var buildName string
var buildVersion string

// BuildName gets the current build name, or "unknown" if none was injected.
func BuildName() string {
	if buildName == "" {
		return "unknown"
	}
	return buildName
}

// BuildVersion gets the current build version, or "unknown" if none was
// injected.
func BuildVersion() string {
	if buildVersion == "" {
		return "unknown"
	}
	return buildVersion
}

// Summary is what -version prints.
func Summary() string {
	return fmt.Sprintf("Build name: %s\nBuild version: %s", BuildName(), BuildVersion())
}
