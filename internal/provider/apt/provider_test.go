package apt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider/apt"
)

func compile(t *testing.T, yamlDoc string) ([]string, error) {
	t.Helper()
	m, err := manifest.Parse([]byte(yamlDoc))
	require.NoError(t, err)

	p := apt.NewProvider(ports.NewMockCommandRunner(), ports.NewMockFileSystem())
	steps, err := p.Compile(m)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID().String())
	}
	return ids, nil
}

func TestProviderCompile(t *testing.T) {
	ids, err := compile(t, `
apt:
  update: true
  packages:
    - curl
    - docker-ce
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"apt:update", "apt:package:curl", "apt:package:docker-ce"}, ids)
}

func TestProviderCompilePackagesImplyUpdate(t *testing.T) {
	ids, err := compile(t, `
apt:
  packages:
    - curl
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"apt:update", "apt:package:curl"}, ids)
}

func TestProviderCompileNoSection(t *testing.T) {
	ids, err := compile(t, `sysctl: {settings: {}}`)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestProviderCompileBadSection(t *testing.T) {
	_, err := compile(t, `
apt:
  packages: not-a-list
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apt")
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := apt.ParseConfig(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, apt.DefaultMaxAgeHours, cfg.MaxAgeHours)
	assert.False(t, cfg.Update)
	assert.Empty(t, cfg.Packages)
}

func TestParseConfigVersionedPackage(t *testing.T) {
	cfg, err := apt.ParseConfig(map[string]interface{}{
		"packages": []interface{}{
			map[string]interface{}{"name": "docker-ce", "version": "5:27.3.1-1"},
		},
	})
	require.NoError(t, err)
	require.Len(t, cfg.Packages, 1)
	assert.Equal(t, "docker-ce=5:27.3.1-1", cfg.Packages[0].FullName())
}
