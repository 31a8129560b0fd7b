package configloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server struct {
		Port    int           `koanf:"port"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"server"`
	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`
}

func (c *testConfig) Validate() error {
	if c.Server.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

const testYaml = `
server:
  port: 8080
  timeout: 5s
database:
  url: postgres://from-yaml
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func Test_Load(t *testing.T) {
	testCases := []struct {
		name        string
		yaml        string
		dotEnv      string
		env         map[string]string
		expectPort  int
		expectURL   string
		expectError bool
	}{
		{
			name:       "yaml only",
			yaml:       testYaml,
			expectPort: 8080,
			expectURL:  "postgres://from-yaml",
		},
		{
			name:       ".env overrides yaml",
			yaml:       testYaml,
			dotEnv:     "TESTSVC_DATABASE_URL=postgres://from-dotenv\n",
			expectPort: 8080,
			expectURL:  "postgres://from-dotenv",
		},
		{
			name:       "system env overrides .env",
			yaml:       testYaml,
			dotEnv:     "TESTSVC_DATABASE_URL=postgres://from-dotenv\n",
			env:        map[string]string{"TESTSVC_DATABASE_URL": "postgres://from-env", "TESTSVC_SERVER_PORT": "9090"},
			expectPort: 9090,
			expectURL:  "postgres://from-env",
		},
		{
			name:        "validation error",
			yaml:        "database:\n  url: postgres://x\n",
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			dir := t.TempDir()
			t.Chdir(dir)
			writeFile(t, filepath.Join(dir, defaultConfigFile), tc.yaml)
			if tc.dotEnv != "" {
				writeFile(t, filepath.Join(dir, defaultEnvFile), tc.dotEnv)
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			// when
			cfg, err := Load[*testConfig]("testsvc")

			// then
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectPort, cfg.Server.Port)
			assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
			assert.Equal(t, tc.expectURL, cfg.Database.URL)
		})
	}
}

func Test_Load_ConfigFileOverride(t *testing.T) {
	// given
	dir := t.TempDir()
	t.Chdir(dir)
	custom := filepath.Join(dir, "custom.yaml")
	writeFile(t, custom, testYaml)
	t.Setenv("TESTSVC_CONFIG_FILE", custom)

	// when
	cfg, err := Load[*testConfig]("testsvc")

	// then
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
