package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devraulu/normurl/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNormalizeArgs(t *testing.T) {
	out, _, err := run(t, "", "normalize", "www.sindresorhus.com/foo/", "HTTP://example.com/?b=2&a=1")
	require.NoError(t, err)
	assert.Equal(t, "http://sindresorhus.com/foo\nhttp://example.com/?a=1&b=2\n", out)
}

func TestNormalizeStdin(t *testing.T) {
	out, _, err := run(t, "# list\nexample.com\n\nexample.org/\n", "normalize")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com\nhttp://example.org\n", out)
}

func TestNormalizeFlagsOverrideDefaults(t *testing.T) {
	out, _, err := run(t, "", "normalize", "--strip-www=false", "--force-https", "--strip-protocol", "http://www.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "www.example.com\n", out)

	out, _, err = run(t, "", "normalize", "--remove-all-query-parameters", "example.com/?a=1")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com\n", out)

	out, _, err = run(t, "", "normalize", "--keep-query-parameters", "^a$", "example.com/?a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/?a=1\n", out)
}

func TestNormalizeReportsFailures(t *testing.T) {
	out, stderr, err := run(t, "", "normalize", "example.com", "/relative")
	require.Error(t, err)
	assert.Equal(t, "http://example.com\n", out)
	assert.Contains(t, stderr, "/relative:")
}

func TestNormalizeJSON(t *testing.T) {
	out, _, err := run(t, "", "normalize", "--json", "example.com")
	require.NoError(t, err)
	assert.JSONEq(t, `{"input":"example.com","normalized":"http://example.com"}`, out)
}

func TestForceFlagsConflict(t *testing.T) {
	_, _, err := run(t, "", "normalize", "--force-http", "--force-https", "example.com")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normurl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[normalize]\nforce_https = true\nremove_trailing_slash = false\n"), 0o600))

	out, _, err := run(t, "", "--config", path, "normalize", "example.com/a/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a/\n", out)

	// An explicit flag beats the file.
	out, _, err = run(t, "", "--config", path, "--remove-trailing-slash", "normalize", "example.com/a/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a\n", out)
}

func TestDedupe(t *testing.T) {
	in := "example.com/a/\nhttp://www.example.com/a\nexample.org\n/bad\n"

	out, _, err := run(t, in, "dedupe")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a\nhttp://example.org\n", out)

	out, _, err = run(t, in, "dedupe", "--count")
	require.NoError(t, err)
	assert.Equal(t, "2\thttp://example.com/a\n1\thttp://example.org\n", out)

	out, _, err = run(t, in, "dedupe", "--by-host")
	require.NoError(t, err)
	assert.Equal(t, "example.com\n\thttp://example.com/a\nexample.org\n\thttp://example.org\n", out)
}

func TestDedupeStoreNeedsDSN(t *testing.T) {
	_, _, err := run(t, "example.com\n", "dedupe", "--store")
	assert.ErrorContains(t, err, "dsn")
}

func TestExtract(t *testing.T) {
	html := `<html><body><a href="/a/">a</a><a href="https://www.example.org/?utm_medium=x">b</a></body></html>`
	out, _, err := run(t, html, "extract", "--base", "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a\nhttps://example.org\n", out)

	_, _, err = run(t, html, "extract")
	assert.Error(t, err)
}

func TestMigrateNeedsDSN(t *testing.T) {
	_, _, err := run(t, "", "migrate")
	assert.ErrorContains(t, err, "dsn")
}

func TestOpenRegistryWithoutDSN(t *testing.T) {
	store, err := openRegistry(context.Background(), "")
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &storage.MemoryStorage{}, store)

	isNew, err := store.SaveURL(context.Background(), storage.Record{Normalized: "http://example.com", Host: "example.com"})
	require.NoError(t, err)
	assert.True(t, isNew)
}
