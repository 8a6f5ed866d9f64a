package index

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// phpArray 是有序的 PHP 数组，键为 string 或 int.
type phpArray struct {
	entries []phpEntry
	next    int
}

type phpEntry struct {
	key   any
	value any
}

func newPHPArray() *phpArray { return &phpArray{} }

// set 追加或覆盖键值.
func (a *phpArray) set(key, value any) {
	if n, ok := key.(int); ok && n >= a.next {
		a.next = n + 1
	}

	for i := range a.entries {
		if a.entries[i].key == key {
			a.entries[i].value = value
			return
		}
	}

	a.entries = append(a.entries, phpEntry{key: key, value: value})
}

// add 追加键值，不检查重复，仅用于构造.
func (a *phpArray) add(key string, value any) {
	a.entries = append(a.entries, phpEntry{key: key, value: value})
}

// push 以下一个整数键追加.
func (a *phpArray) push(value any) { a.set(a.next, value) }

func (a *phpArray) get(key string) (any, bool) {
	for _, e := range a.entries {
		if e.key == key {
			return e.value, true
		}
	}

	return nil, false
}

func (a *phpArray) array(key string) *phpArray {
	v, _ := a.get(key)
	arr, _ := v.(*phpArray)

	return arr
}

func (a *phpArray) str(key string) string {
	v, _ := a.get(key)
	return scalarString(v)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}

		return ""
	default:
		return ""
	}
}

// exportPHP 以 var_export 的排版输出值.
func exportPHP(v any) string {
	var b strings.Builder

	writePHP(&b, v, "")

	return b.String()
}

func writePHP(b *strings.Builder, v any, indent string) {
	switch t := v.(type) {
	case *phpArray:
		b.WriteString("array (\n")

		for _, e := range t.entries {
			b.WriteString(indent + "  ")
			writePHP(b, e.key, "")
			b.WriteString(" => ")

			if _, nested := e.value.(*phpArray); nested {
				b.WriteString("\n" + indent + "  ")
			}

			writePHP(b, e.value, indent+"  ")
			b.WriteString(",\n")
		}

		b.WriteString(indent + ")")
	case string:
		b.WriteString(quotePHP(t))
	case int:
		b.WriteString(strconv.Itoa(t))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		b.WriteString(strconv.FormatBool(t))
	default:
		b.WriteString("NULL")
	}
}

var phpQuoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quotePHP(s string) string {
	return "'" + phpQuoter.Replace(s) + "'"
}

var (
	errPHPSyntax = errors.New("php literal syntax error")
	returnStmt   = regexp.MustCompile(`(?m)^\s*return\s+`)
)

// parsePHPReturn 解析文件中 "return <literal>;" 语句返回的值.
func parsePHPReturn(src string) (any, error) {
	loc := returnStmt.FindStringIndex(src)
	if loc == nil {
		return nil, fmt.Errorf("%w: return statement not found", errPHPSyntax)
	}

	p := &phpParser{src: src, pos: loc[1]}

	v, err := p.value()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if !p.consume(";") {
		return nil, p.errorf("expected ';'")
	}

	return v, nil
}

type phpParser struct {
	src string
	pos int
}

func (p *phpParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", errPHPSyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *phpParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *phpParser) consume(tok string) bool {
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}

	return false
}

func (p *phpParser) value() (any, error) {
	p.skipSpace()

	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '\'':
		return p.singleQuoted()
	case c == '"':
		return p.doubleQuoted()
	case c == '[':
		p.pos++
		return p.arrayBody(']')
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.number()
	case unicode.IsLetter(rune(c)):
		return p.word()
	default:
		return nil, p.errorf("unexpected %q", c)
	}
}

func (p *phpParser) word() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && (unicode.IsLetter(rune(p.src[p.pos])) || p.src[p.pos] == '_') {
		p.pos++
	}

	switch w := strings.ToLower(p.src[start:p.pos]); w {
	case "array":
		p.skipSpace()

		if !p.consume("(") {
			return nil, p.errorf("expected '(' after array")
		}

		return p.arrayBody(')')
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	default:
		return nil, p.errorf("unsupported token %q", w)
	}
}

func (p *phpParser) arrayBody(closer byte) (any, error) {
	arr := newPHPArray()

	for {
		p.skipSpace()

		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated array")
		}

		if p.src[p.pos] == closer {
			p.pos++
			return arr, nil
		}

		first, err := p.value()
		if err != nil {
			return nil, err
		}

		p.skipSpace()

		if p.consume("=>") {
			v, err := p.value()
			if err != nil {
				return nil, err
			}

			key, err := p.arrayKey(first)
			if err != nil {
				return nil, err
			}

			arr.set(key, v)
		} else {
			arr.push(first)
		}

		p.skipSpace()

		if !p.consume(",") && (p.pos >= len(p.src) || p.src[p.pos] != closer) {
			return nil, p.errorf("expected ',' or %q", closer)
		}
	}
}

// arrayKey 按 PHP 规则转换数组键：十进制整数字符串与数字转为 int.
func (p *phpParser) arrayKey(v any) (any, error) {
	switch t := v.(type) {
	case string:
		if n, err := strconv.Atoi(t); err == nil && strconv.Itoa(n) == t {
			return n, nil
		}

		return t, nil
	case int:
		return t, nil
	case float64:
		return int(t), nil
	case bool:
		if t {
			return 1, nil
		}

		return 0, nil
	case nil:
		return "", nil
	default:
		return nil, p.errorf("illegal array key")
	}
}

func (p *phpParser) number() (any, error) {
	start := p.pos
	if p.src[p.pos] == '-' || p.src[p.pos] == '+' {
		p.pos++
	}

	for p.pos < len(p.src) && strings.IndexByte("0123456789.eE+-", p.src[p.pos]) >= 0 {
		p.pos++
	}

	lit := p.src[start:p.pos]

	if n, err := strconv.Atoi(lit); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, p.errorf("bad number %q", lit)
	}

	return f, nil
}

func (p *phpParser) singleQuoted() (any, error) {
	p.pos++

	var b strings.Builder

	for p.pos < len(p.src) {
		c := p.src[p.pos]

		switch {
		case c == '\'':
			p.pos++
			return b.String(), nil
		case c == '\\' && p.pos+1 < len(p.src) && (p.src[p.pos+1] == '\\' || p.src[p.pos+1] == '\''):
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
		default:
			b.WriteByte(c)
			p.pos++
		}
	}

	return nil, p.errorf("unterminated string")
}

var doubleEscapes = map[byte]byte{'n': '\n', 't': '\t', 'r': '\r', 'v': '\v', 'f': '\f', '0': 0, '\\': '\\', '"': '"', '$': '$'}

func (p *phpParser) doubleQuoted() (any, error) {
	p.pos++

	var b strings.Builder

	for p.pos < len(p.src) {
		c := p.src[p.pos]

		switch {
		case c == '"':
			p.pos++
			return b.String(), nil
		case c == '\\' && p.pos+1 < len(p.src):
			if r, ok := doubleEscapes[p.src[p.pos+1]]; ok {
				b.WriteByte(r)
				p.pos += 2

				continue
			}

			b.WriteByte(c)
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}

	return nil, p.errorf("unterminated string")
}
