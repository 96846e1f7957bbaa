package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	t.Setenv(ConfigPathEnvVar, p)
	return p
}

func TestLoad_JSONFileWithDefaults(t *testing.T) {
	writeConfig(t, "config.json", `{"logsUrl": "http://proxy.example.com/logs"}`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://proxy.example.com/logs/", cfg.LogsURL)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 3000, cfg.ServerPort)
	assert.Equal(t, 15000, cfg.RequestTimeoutMs)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout())
	assert.False(t, cfg.AllowInsecureTLS)
	assert.Equal(t, 4, cfg.MaxConcurrentDownloads)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.Equal(t, time.Local, cfg.Location())
	assert.False(t, cfg.Archive.Enabled())
	assert.NotEmpty(t, cfg.InstanceID)
}

func TestLoad_YAMLFile(t *testing.T) {
	writeConfig(t, "config.yaml", `
logsUrl: https://proxy.example.com/
serverPort: 8080
maxConcurrentDownloads: 2
allowInsecureTls: true
timezone: Asia/Seoul
archive:
  bucket: my-bucket
  timeout: 3s
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://proxy.example.com/", cfg.LogsURL)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 2, cfg.MaxConcurrentDownloads)
	assert.True(t, cfg.AllowInsecureTLS)
	assert.Equal(t, "Asia/Seoul", cfg.Location().String())
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, 3*time.Second, cfg.Archive.Timeout)
	assert.Equal(t, "snapshots", cfg.Archive.Prefix)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	writeConfig(t, "config.json", `{"logsUrl": "http://a.example.com/", "serverPort": 4000}`)
	t.Setenv("PROXYSTAT_SERVER_PORT", "5000")
	t.Setenv("PROXYSTAT_LOGS_URL", "http://b.example.com/x")
	t.Setenv("PROXYSTAT_ARCHIVE_RETRIES", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.ServerPort)
	assert.Equal(t, "http://b.example.com/x/", cfg.LogsURL)
	assert.Equal(t, 7, cfg.Archive.Retries)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "nope.json"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing logsUrl":  `{}`,
		"ftp scheme":       `{"logsUrl": "ftp://proxy.example.com/"}`,
		"bad port":         `{"logsUrl": "http://p.example.com/", "serverPort": 70000}`,
		"zero timeout":     `{"logsUrl": "http://p.example.com/", "requestTimeoutMs": 0}`,
		"zero concurrency": `{"logsUrl": "http://p.example.com/", "maxConcurrentDownloads": 0}`,
		"bad timezone":     `{"logsUrl": "http://p.example.com/", "timezone": "Mars/Olympus"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			writeConfig(t, "config.json", body)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNormalizeLogsURL(t *testing.T) {
	cases := map[string]string{
		"http://h/":           "http://h/",
		"http://h":            "http://h/",
		"http://h/logs":       "http://h/logs/",
		"https://h:8443/a/b/": "https://h:8443/a/b/",
	}
	for in, want := range cases {
		got, err := normalizeLogsURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := normalizeLogsURL("file:///etc/passwd")
	assert.Error(t, err)
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "logsUrl", envTransformFunc("PROXYSTAT_LOGS_URL"))
	assert.Equal(t, "archive.bucket", envTransformFunc("PROXYSTAT_ARCHIVE_BUCKET"))
	assert.Equal(t, "", envTransformFunc("PROXYSTAT_UNKNOWN"))
}
