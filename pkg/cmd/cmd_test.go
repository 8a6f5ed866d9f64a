package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/snipvault/pkg/internal/snippet"
)

func TestSettingsRequest(t *testing.T) {
	req, err := settingsRequest([]string{"auto_disable=no", " auto_publish =yes"})
	require.NoError(t, err)
	assert.Equal(t, "no", req.AutoDisable)
	assert.Equal(t, "yes", req.AutoPublish)
	assert.Empty(t, req.RemoveOnUninstall)

	_, err = settingsRequest([]string{"secret_key=x"})
	require.ErrorContains(t, err, "unknown setting")

	_, err = settingsRequest([]string{"auto_disable"})
	require.ErrorContains(t, err, "key=value")
}

func TestMetaOptionsBuild(t *testing.T) {
	base := snippet.NewMeta(snippet.KeyName, "Old", snippet.KeyType, snippet.TypePHP, snippet.KeyGroup, "tools")

	opts := metaOptions{name: "New", priority: 5, extra: []string{"scope=global"}}

	meta, err := opts.build(base)
	require.NoError(t, err)
	assert.Equal(t, "New", meta.Name())
	assert.Equal(t, snippet.TypePHP, meta.Type())
	assert.Equal(t, "tools", meta.Group())
	assert.Equal(t, 5, meta.Priority())
	assert.Equal(t, "global", meta.Value("scope"))

	bad := metaOptions{extra: []string{"=x"}}
	_, err = bad.build(snippet.NewMeta())
	require.Error(t, err)
}

func TestReadCode(t *testing.T) {
	code, err := readCode(strings.NewReader("echo 1;"), "-")
	require.NoError(t, err)
	assert.Equal(t, "echo 1;", code)

	path := filepath.Join(t.TempDir(), "a.css")
	require.NoError(t, os.WriteFile(path, []byte("body{}"), 0o644))

	code, err = readCode(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "body{}", code)

	_, err = readCode(nil, "")
	require.Error(t, err)
}

func TestWrite(t *testing.T) {
	v := struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{Name: "a", Count: 2}

	var buf bytes.Buffer

	require.NoError(t, write(&buf, formatYAML, v))
	assert.Equal(t, "name: a\ncount: 2\n", buf.String())

	buf.Reset()
	require.NoError(t, write(&buf, formatJSON, v))
	assert.JSONEq(t, `{"name":"a","count":2}`, buf.String())

	require.Error(t, write(&buf, "toml", v))
}
