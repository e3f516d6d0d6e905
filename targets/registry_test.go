package targets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTargets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestRegistry(t *testing.T, content string) (*Registry, error) {
	return NewRegistry(Config{
		Log:        log.NewLogger(log.DiscardHandler()),
		TargetFile: writeTargets(t, content),
	})
}

func TestRegistry(t *testing.T) {
	r, err := newTestRegistry(t, `
default: staging
targets:
  - name: staging
    endpoint: http://localhost:8545
    username: test@user.com
    org_id: 00Dxx0000000001
  - name: scratch
    inherits: staging
    username: scratch@user.com
`)
	require.NoError(t, err)
	require.NotNil(t, r.GetConfig())
	assert.Equal(t, []string{"staging", "scratch"}, r.Names())

	def, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "staging", def.Name)
	assert.Equal(t, "http://localhost:8545", def.Endpoint)

	scratch, err := r.Get("scratch")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", scratch.Endpoint)
	assert.Equal(t, "scratch@user.com", scratch.Username)
	assert.Equal(t, "00Dxx0000000001", scratch.OrgID)

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistryErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "circular inheritance",
			content: `
targets:
  - name: a
    inherits: b
  - name: b
    inherits: a
`,
		},
		{
			name: "unknown parent",
			content: `
targets:
  - name: a
    inherits: nope
`,
		},
		{
			name: "duplicate",
			content: `
targets:
  - name: a
  - name: a
`,
		},
		{
			name: "unknown default",
			content: `
default: b
targets:
  - name: a
`,
		},
		{
			name:    "invalid yaml",
			content: "targets: [",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestRegistry(t, tt.content)
			assert.Error(t, err)
		})
	}
}

func TestRegistryNoDefault(t *testing.T) {
	r, err := newTestRegistry(t, `
targets:
  - name: a
    endpoint: http://a
`)
	require.NoError(t, err)
	_, err = r.Get("")
	assert.Error(t, err)
}

func TestRegistryRequiresFile(t *testing.T) {
	_, err := NewRegistry(Config{})
	assert.Error(t, err)

	_, err = NewRegistry(Config{TargetFile: "nonexistent.yaml"})
	assert.Error(t, err)
}
