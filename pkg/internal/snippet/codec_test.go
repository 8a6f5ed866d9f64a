package snippet_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/snipvault/pkg/internal/snippet"
)

// TestEncodeLayout 测试编码后的文件布局.
func TestEncodeLayout(t *testing.T) {
	meta := snippet.NewMeta(snippet.KeyName, "Hello", snippet.KeyStatus, "draft", snippet.KeyType, "PHP")

	raw, err := snippet.Encode(meta, "echo 1;")
	require.NoError(t, err)

	want := "<?php\n// <Internal Doc Start>\n/*\n*\n* @name: Hello\n* @status: draft\n* @type: PHP\n*/\n?>\n" +
		"<?php if (!defined(\"ABSPATH\")) { return;} // <Internal Doc End> ?>\n<?php\necho 1;"
	assert.Equal(t, want, string(raw))
}

// TestRoundTrip 测试编码解码往返.
func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		meta *snippet.Meta
		body string
	}{
		{
			name: "php body with open tag",
			meta: snippet.NewMeta("name", "A", "type", "PHP", "priority", "5"),
			body: "<?php\necho 'a';\n",
		},
		{
			name: "css body",
			meta: snippet.NewMeta("name", "Style", "type", "css"),
			body: "body { color: red; }",
		},
		{
			name: "unknown keys kept in order",
			meta: snippet.NewMeta("x-custom", "1", "name", "B", "type", "js", "zeta", "z"),
			body: "console.log(1)",
		},
		{
			name: "multi line description",
			meta: snippet.NewMeta("name", "C", "description", "line one\nline two", "type", "css"),
			body: "",
		},
		{
			name: "empty meta",
			meta: snippet.NewMeta(),
			body: "plain",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := snippet.Encode(tc.meta, tc.body)
			require.NoError(t, err)

			meta, body, err := snippet.Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.meta.Keys(), meta.Keys())

			for _, k := range tc.meta.Keys() {
				assert.Equal(t, tc.meta.Value(k), meta.Value(k), k)
			}

			assert.Equal(t, tc.body, body)
		})
	}
}

// TestEncodeAddsOpenTag 测试 PHP 类型缺少起始标签时自动补上.
func TestEncodeAddsOpenTag(t *testing.T) {
	raw, err := snippet.Encode(snippet.NewMeta("type", "PHP"), "echo 1;")
	require.NoError(t, err)

	_, body, err := snippet.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "<?php\necho 1;", body)

	raw, err = snippet.Encode(snippet.NewMeta("type", "css"), "a{}")
	require.NoError(t, err)

	_, body, err = snippet.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "a{}", body)
}

// TestEncodeStripsCommentClose 测试值中的注释结束符被去除.
func TestEncodeStripsCommentClose(t *testing.T) {
	meta := snippet.NewMeta("name", "evil */ name", "description", "**//x")

	raw, err := snippet.Encode(meta, "")
	require.NoError(t, err)

	got, _, err := snippet.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "evil  name", got.Name())
	assert.Equal(t, "x", got.Description())
	assert.Equal(t, 1, strings.Count(string(raw), "*/"))
}

// TestEncodeInvalidKey 测试非法键.
func TestEncodeInvalidKey(t *testing.T) {
	for _, key := range []string{"", "bad key", "a:b", "x*/"} {
		_, err := snippet.Encode(snippet.NewMeta(key, "v"), "")
		assert.ErrorIs(t, err, snippet.ErrInvalidKey, key)
	}
}

// TestDecodeNotRecord 测试缺少标记的内容.
func TestDecodeNotRecord(t *testing.T) {
	_, _, err := snippet.Decode([]byte("<?php\n// Silence is golden."))
	assert.ErrorIs(t, err, snippet.ErrNotRecord)
	assert.NotErrorIs(t, err, snippet.ErrMalformed)

	_, _, err = snippet.Decode([]byte("<?php\n// <Internal Doc Start>\n/*\n* @name: x\n*/"))
	assert.ErrorIs(t, err, snippet.ErrMalformed)
	assert.ErrorIs(t, err, snippet.ErrNotRecord)
}

// TestDecodeTolerant 测试宽松解析：无前导星号、CRLF 换行、重复键.
func TestDecodeTolerant(t *testing.T) {
	raw := "<?php\r\n// <Internal Doc Start>\r\n/*\r\n*\r\n@name: Hand Written\r\n * @status:published\r\n" +
		"stray line\r\n* @name: Second\r\n*/\r\n?>\r\n<?php if (!defined(\"ABSPATH\")) { return;} // <Internal Doc End> ?>\r\nbody"

	meta, body, err := snippet.Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Second", meta.Name())
	assert.Equal(t, "published\nstray line", meta.Value("status"))
	assert.Equal(t, []string{"name", "status"}, meta.Keys())
	assert.Equal(t, "body", body)
}

// TestDecodeBodyKeepsMarkers 测试 body 中再次出现结束标记时不被截断.
func TestDecodeBodyKeepsMarkers(t *testing.T) {
	body := "<?php\n// <Internal Doc End> ?>\necho 2;"

	raw, err := snippet.Encode(snippet.NewMeta("type", "PHP"), body)
	require.NoError(t, err)

	_, got, err := snippet.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

// TestRoundTripFieldLikeLines 测试多行值中形如 "@key:" 的行不会被解析为新字段.
func TestRoundTripFieldLikeLines(t *testing.T) {
	desc := "notes\n@status: published\n* @name: other\n\\@type: css\n\\\\plain"
	meta := snippet.NewMeta(snippet.KeyName, "Draft", snippet.KeyStatus, snippet.StatusDraft, snippet.KeyDescription, desc)

	raw, err := snippet.Encode(meta, "")
	require.NoError(t, err)

	got, _, err := snippet.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, snippet.StatusDraft, got.Status())
	assert.Equal(t, "Draft", got.Name())
	assert.Equal(t, desc, got.Description())
	assert.Equal(t, meta.Keys(), got.Keys())
}

// TestEncodeStripsEndMarker 测试值中的结束标记被去除，body 不受影响.
func TestEncodeStripsEndMarker(t *testing.T) {
	meta := snippet.NewMeta(snippet.KeyName, "a // <Internal Doc End> ?> b", snippet.KeyType, snippet.TypePHP)

	raw, err := snippet.Encode(meta, "<?php\necho 1;")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), snippet.EndMarker))

	got, body, err := snippet.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "a  b", got.Name())
	assert.Equal(t, snippet.TypePHP, got.Type())
	assert.Equal(t, "<?php\necho 1;", body)
}

// TestEncodeTrimsValues 测试值的首尾空白与 CRLF 在编码时被规范化.
func TestEncodeTrimsValues(t *testing.T) {
	meta := snippet.NewMeta(snippet.KeyName, "  padded  ", snippet.KeyDescription, "one\r\ntwo ")

	raw, err := snippet.Encode(meta, "")
	require.NoError(t, err)

	got, _, err := snippet.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "padded", got.Name())
	assert.Equal(t, "one\ntwo", got.Description())
}
