package netparams

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParamsForName verifies the lookup of every known network and the
// rejection of unknown names.
func TestParamsForName(t *testing.T) {
	for _, want := range []*Params{
		&MainNetParams, &TestNetParams, &RegTestParams,
	} {
		got, ok := ParamsForName(want.Name)
		require.True(t, ok, want.Name)
		require.Same(t, want, got)
	}

	_, ok := ParamsForName("simnet")
	require.False(t, ok)
}

// TestSaplingHRPsDistinct ensures that a Sapling address can never be
// mistaken for one of another network.
func TestSaplingHRPsDistinct(t *testing.T) {
	seen := make(map[string]string)
	for _, p := range []*Params{
		&MainNetParams, &TestNetParams, &RegTestParams,
	} {
		other, ok := seen[p.SaplingHRP]
		require.False(t, ok, "%s shares HRP with %s", p.Name, other)
		seen[p.SaplingHRP] = p.Name
	}
}
