package snippet

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// 记录文件的固定片段.
const (
	StartMarker = "// <Internal Doc Start>"
	EndMarker   = "// <Internal Doc End> ?>"

	OpenTag  = "<?php"
	CloseTag = "?>"

	// Guard 在宿主上下文之外加载文件时直接返回.
	Guard = `<?php if (!defined("ABSPATH")) { return;}`

	commentOpen  = "/*"
	commentClose = "*/"
)

var (
	// ErrNotRecord 内容缺少起止标记，不是一条记录；扫描时应跳过而非失败.
	ErrNotRecord = errors.New("not a snippet record")
	// ErrMalformed 存在起始标记但缺少结束标记.
	ErrMalformed = fmt.Errorf("%w: end marker missing", ErrNotRecord)
	// ErrInvalidKey 元数据键为空或包含不允许的字符.
	ErrInvalidKey = errors.New("invalid meta key")
)

var (
	keyPattern   = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
	fieldPattern = regexp.MustCompile(`^\s*\*?\s*@([A-Za-z0-9_.\-]+)\s*:(.*)$`)
)

// SanitizeValue 去掉值中所有的注释结束符 "*/" 与结束标记，统一换行为 "\n" 并去掉首尾空白.
// 记录以 C 风格块注释包裹元数据，值中出现结束符会提前截断注释并损坏文件.
func SanitizeValue(v string) string {
	v = strings.ReplaceAll(v, "\r\n", "\n")

	for strings.Contains(v, commentClose) || strings.Contains(v, EndMarker) {
		v = strings.ReplaceAll(v, commentClose, "")
		v = strings.ReplaceAll(v, EndMarker, "")
	}

	return strings.TrimSpace(v)
}

// needsEscape 续行本身会被解析为字段，或去掉一个 "\" 后会被解析为字段.
func needsEscape(line string) bool {
	return fieldPattern.MatchString(line) || (strings.HasPrefix(line, `\`) && needsEscape(line[1:]))
}

// encodeValue 多行值的续行若形如 "@key:" 则加前缀 "\"，解码时去掉.
func encodeValue(v string) string {
	lines := strings.Split(SanitizeValue(v), "\n")

	for i := 1; i < len(lines); i++ {
		if needsEscape(lines[i]) {
			lines[i] = `\` + lines[i]
		}
	}

	return strings.Join(lines, "\n")
}

func unescapeLine(line string) string {
	if strings.HasPrefix(line, `\`) && needsEscape(line[1:]) {
		return line[1:]
	}

	return line
}

// EnsureOpenTag 对 PHP 类型的 body 在缺少起始标签时补上.
func EnsureOpenTag(typ, body string) string {
	if typ != TypePHP || strings.HasPrefix(body, OpenTag) {
		return body
	}

	return OpenTag + "\n" + body
}

// Encode 把元数据与 body 编码为记录文件内容.
func Encode(meta *Meta, body string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(OpenTag + "\n" + StartMarker + "\n" + commentOpen + "\n*")

	for _, k := range meta.Keys() {
		if !keyPattern.MatchString(k) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}

		buf.WriteString("\n* @")
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(encodeValue(meta.Value(k)))
	}

	buf.WriteString("\n" + commentClose + "\n" + CloseTag + "\n" + Guard + " " + EndMarker + "\n")
	buf.WriteString(EnsureOpenTag(meta.Type(), body))

	return buf.Bytes(), nil
}

// Decode 拆分记录文件为元数据与 body.
//
// 起始标记缺失返回 ErrNotRecord，结束标记缺失返回 ErrMalformed（同样满足 errors.Is(err, ErrNotRecord)）.
// 元数据行形如 "* @key: value"，前导的 "*" 可省略；不以 "@key:" 开头的行视为上一字段值的续行，
// 出现在首个字段之前的此类行被忽略；以 "\" 转义的续行还原为原文.
func Decode(raw []byte) (*Meta, string, error) {
	content := string(raw)

	_, rest, ok := strings.Cut(content, StartMarker)
	if !ok {
		return nil, "", ErrNotRecord
	}

	block, body, ok := strings.Cut(rest, EndMarker)
	if !ok {
		return nil, "", ErrMalformed
	}

	switch {
	case strings.HasPrefix(body, "\r\n"):
		body = body[2:]
	case strings.HasPrefix(body, "\n"):
		body = body[1:]
	}

	return parseBlock(block), body, nil
}

func parseBlock(block string) *Meta {
	if _, after, ok := strings.Cut(block, commentOpen); ok {
		block = after
		if before, _, ok := strings.Cut(block, commentClose); ok {
			block = before
		}
	}

	meta := NewMeta()

	var (
		key   string
		lines []string
	)

	flush := func() {
		if key != "" {
			meta.Set(key, strings.TrimSpace(strings.Join(lines, "\n")))
		}
	}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if m := fieldPattern.FindStringSubmatch(line); m != nil {
			flush()

			key = m[1]
			lines = []string{m[2]}

			continue
		}

		if key != "" {
			lines = append(lines, unescapeLine(line))
		}
	}

	flush()

	return meta
}
