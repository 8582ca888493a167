package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnknownBuild(t *testing.T) {
	name, ver := buildName, buildVersion
	defer func() { buildName, buildVersion = name, ver }()

	buildName, buildVersion = "", ""
	require.Equal(t, "unknown", BuildName())
	require.Equal(t, "unknown", BuildVersion())

	buildName, buildVersion = "uccn", "v1.2.3"
	require.Equal(t, "Build name: uccn\nBuild version: v1.2.3", Summary())
}
