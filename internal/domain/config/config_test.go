package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domainerr "garden/internal/domain/errors"
)

func validConfig() Config {
	cfg := Default()
	cfg.Site.SiteURL = "https://garden.example"
	return cfg
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_MissingSiteURL(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)

	var ve domainerr.ValidationError
	require.ErrorAs(t, err, &ve)
	require.True(t, ve.Has("site.site_url"))
}

func TestValidate_BadValues(t *testing.T) {
	cfg := validConfig()
	cfg.Site.SiteURL = "ftp://example.com"
	cfg.Site.SortMode = "random"
	cfg.Build.BasePath = "no-slash/"
	cfg.Transform.Strategy = "sideways"

	err := cfg.Validate()
	var ve domainerr.ValidationError
	require.ErrorAs(t, err, &ve)
	require.True(t, ve.Has("site.site_url"))
	require.True(t, ve.Has("site.sort_mode"))
	require.True(t, ve.Has("build.base_path"))
	require.True(t, ve.Has("transform.strategy"))
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
site:
  title: My Garden
  site_url: https://garden.example
transform:
  strategy: shortest
  pretty_links: false
  lazy_load: true
`), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "My Garden", cfg.Site.Title)
	// 文件没写到的字段保留默认值
	require.Equal(t, "default", cfg.Site.Theme)
	require.Equal(t, "content", cfg.Build.SourceDir)

	require.Equal(t, ResolveShortest, cfg.Transform.Strategy)
	require.False(t, cfg.Transform.PrettyLinksEnabled())
	require.True(t, cfg.Transform.LazyLoad)
	// 没写 external_icon：默认开
	require.True(t, cfg.Transform.ExternalIconEnabled())
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(p, []byte("site:\n  title: \"\"\n"), 0o644))

	_, err := Load(p)
	require.Error(t, err)
}

func TestTransformToggleDefaults(t *testing.T) {
	var tc TransformConfig
	require.True(t, tc.PrettyLinksEnabled())
	require.True(t, tc.ExternalIconEnabled())

	off := false
	tc.ExternalIcon = &off
	require.False(t, tc.ExternalIconEnabled())
}
