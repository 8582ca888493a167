package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gologme/log"
	"github.com/stretchr/testify/require"

	"github.com/uccn-net/uccn-go/src/core"
)

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	setLogLevel("warn", logger)
	logger.Debugln("hidden")
	logger.Infoln("hidden")
	logger.Warnln("shown")
	logger.Errorln("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Equal(t, 2, strings.Count(buf.String(), "shown"))
}

func TestPostLines(t *testing.T) {
	network, err := core.ParseNetwork("127.0.0.1/8")
	require.NoError(t, err)
	c, err := core.New(network, "stdin", nil, core.BroadcastPort(0))
	require.NoError(t, err)
	defer c.Close()
	r, err := core.NewResource("/chat")
	require.NoError(t, err)
	provider, err := c.Advertise(r)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	setLogLevel("debug", logger)
	n := &node{core: c, providers: map[string]*core.Provider{"/chat": provider}}
	n.postLines(strings.NewReader("/chat hello there\n/other hi\nnonsense\n"), logger)

	out := buf.String()
	require.Contains(t, out, "Posted 11 bytes to 0 peer(s) tracking /chat")
	require.Contains(t, out, "Not advertising /other")
	require.Contains(t, out, `Expected "/path content", got nonsense`)
}
