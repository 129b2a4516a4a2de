package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocursor/ontosync/internal/infrastructure/config"
)

func TestParsePort(t *testing.T) {
	port, err := ParsePort(":19970")
	require.NoError(t, err)
	assert.Equal(t, 19970, port)

	port, err = ParsePort("127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	_, err = ParsePort("nope")
	assert.Error(t, err)

	_, err = ParsePort(":70000")
	assert.Error(t, err)
}

func TestBuildServiceInfo(t *testing.T) {
	info, err := BuildServiceInfo(&config.DiscoveryConfig{Instance: "dev-box"}, ":19970", "1.0.0", []string{"/a", "/b"})
	require.NoError(t, err)

	assert.Equal(t, "dev-box", info.Instance)
	assert.Equal(t, 19970, info.Port)
	assert.Equal(t, []string{"api=/api/v1", "roots=2", "version=1.0.0", "ws=/ws"}, info.txt())
}

func TestAdvertiser_StopWithoutStart(t *testing.T) {
	a := NewAdvertiser()
	assert.False(t, a.IsRunning())
	a.Stop()
	assert.False(t, a.IsRunning())
}
