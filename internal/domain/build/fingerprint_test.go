package build

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashStrings_OrderIndependent(t *testing.T) {
	a := HashStrings([]string{"x", "y", "z"})
	b := HashStrings([]string{"z", "x", "y"})
	require.Equal(t, a, b)

	c := HashStrings([]string{"x", "y"})
	require.NotEqual(t, a, c)
}

func TestComputeRenderHash(t *testing.T) {
	fp := Fingerprint{ContentHash: "c", ThemeHash: "t", ConfigHash: "cfg", RendererHash: "r"}
	fp.ComputeRenderHash()
	require.NotEmpty(t, fp.RenderHash)

	same := Fingerprint{ContentHash: "c", ThemeHash: "t", ConfigHash: "cfg", RendererHash: "r"}
	same.ComputeRenderHash()
	require.Equal(t, fp.RenderHash, same.RenderHash)

	other := fp
	other.RendererHash = "r2"
	other.ComputeRenderHash()
	require.NotEqual(t, fp.RenderHash, other.RenderHash)
}
