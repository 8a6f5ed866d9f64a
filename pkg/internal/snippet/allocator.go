package snippet

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gosimple/slug"
	"github.com/oklog/ulid"
)

// Strategy 文件名前缀的分配策略.
type Strategy string

const (
	// StrategySequence 以目录中现存 .php 文件数量作为序号（包含索引文件），与宿主既有文件保持一致.
	StrategySequence Strategy = "sequence"
	// StrategyULID 以单调递增的 ULID 作为前缀，不依赖目录计数.
	StrategyULID Strategy = "ulid"
)

// Extension 记录文件扩展名.
const Extension = ".php"

const (
	fallbackSlug = "snippet"
	maxSlugRunes = 120
)

// Allocator 为新记录生成文件名.
type Allocator struct {
	strategy Strategy
	now      func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// NewAllocator 创建分配器，未知策略按 StrategySequence 处理.
func NewAllocator(strategy Strategy) *Allocator {
	if strategy != StrategyULID {
		strategy = StrategySequence
	}

	return &Allocator{
		strategy: strategy,
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Strategy 返回当前策略.
func (a *Allocator) Strategy() Strategy { return a.strategy }

// FileName 根据名称与目录中现存 .php 文件数生成文件名 "{prefix}-{slug}.php".
// count 小于 1 时序号取 1.
func (a *Allocator) FileName(name string, count int) string {
	var prefix string

	switch a.strategy {
	case StrategyULID:
		a.mu.Lock()
		id := ulid.MustNew(ulid.Timestamp(a.now()), a.entropy)
		a.mu.Unlock()

		prefix = strings.ToLower(id.String())
	default:
		if count < 1 {
			count = 1
		}

		prefix = fmt.Sprintf("%d", count)
	}

	return SanitizeFileName(prefix + "-" + Slug(name) + Extension)
}

// Slug 把名称转为 URL 安全的短横线形式，结果为空时回退为 "snippet".
func Slug(name string) string {
	s := slug.Make(name)

	if r := []rune(s); len(r) > maxSlugRunes {
		s = strings.TrimRight(string(r[:maxSlugRunes]), "-")
	}

	if s == "" {
		return fallbackSlug
	}

	return s
}

const fileNameSpecials = `?[]/\=<>:;,'"&$#*()|~` + "`" + `!{}%+’«»”“`

// SanitizeFileName 去掉文件名中的特殊字符与控制字符，空白折叠为单个短横线，并去掉首尾的 "._-".
func SanitizeFileName(name string) string {
	var b strings.Builder

	lastDash := false

	for _, r := range name {
		switch {
		case unicode.IsControl(r) || strings.ContainsRune(fileNameSpecials, r):
			continue
		case unicode.IsSpace(r) || r == '-':
			if !lastDash {
				b.WriteRune('-')
			}

			lastDash = true

			continue
		}

		lastDash = false

		b.WriteRune(r)
	}

	return strings.Trim(b.String(), ".-_")
}
