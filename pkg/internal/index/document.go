package index

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/yeisme/snipvault/pkg/internal/snippet"
)

// 标志位取值.
const (
	Yes = "yes"
	No  = "no"
)

const descriptionLimit = 101

// Meta 索引文档的全局元信息.
type Meta struct {
	SecretKey         string `json:"secret_key"`
	ForceDisabled     string `json:"force_disabled"`
	CachedAt          string `json:"cached_at"`
	CachedVersion     string `json:"cached_version"`
	CachedDomain      string `json:"cached_domain"`
	AutoDisable       string `json:"auto_disable"`
	AutoPublish       string `json:"auto_publish"`
	RemoveOnUninstall string `json:"remove_on_uninstall"`
}

// Entry 单条记录在索引中的精简元数据.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Tags        string `json:"tags"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	RunAt       string `json:"run_at"`
	Priority    int    `json:"priority"`
	Group       string `json:"group"`
	Condition   string `json:"condition"`
	FileName    string `json:"file_name"`
}

// Document 索引文档：按状态分组、组内按 priority 升序的全部记录，以及全局设置.
type Document struct {
	Published  []Entry  `json:"published"`
	Draft      []Entry  `json:"draft"`
	Meta       Meta     `json:"meta"`
	ErrorFiles []string `json:"error_files"`
}

// Lookup 按文件名查找条目.
func (d *Document) Lookup(fileName string) (Entry, bool) {
	for _, bucket := range [][]Entry{d.Published, d.Draft} {
		for _, e := range bucket {
			if e.FileName == fileName {
				return e, true
			}
		}
	}

	return Entry{}, false
}

// Len 返回条目总数.
func (d *Document) Len() int { return len(d.Published) + len(d.Draft) }

// ETag 文档内容摘要.
func (d *Document) ETag() string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64String(exportPHP(d.toPHP())))
}

// entryFromRecord 从记录提取索引条目.
func entryFromRecord(rec *snippet.Record) Entry {
	m := rec.Meta

	return Entry{
		Name:        m.Name(),
		Description: trimDescription(m.Description()),
		Type:        m.Type(),
		Status:      rec.Status(),
		Tags:        m.Tags(),
		CreatedAt:   m.CreatedAt(),
		UpdatedAt:   m.UpdatedAt(),
		RunAt:       m.RunAt(),
		Priority:    m.Priority(),
		Group:       m.Group(),
		Condition:   m.Condition(),
		FileName:    rec.ID,
	}
}

// trimDescription 换行折叠为 ". " 后截断到 101 个字符.
func trimDescription(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", ". ")

	if r := []rune(s); len(r) > descriptionLimit {
		s = string(r[:descriptionLimit])
	}

	return s
}

// buildBuckets 稳定排序后按状态分组.
func buildBuckets(records []*snippet.Record) (published, draft []Entry) {
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entryFromRecord(rec))
	}

	slices.SortStableFunc(entries, func(a, b Entry) int { return a.Priority - b.Priority })

	published, draft = []Entry{}, []Entry{}

	for _, e := range entries {
		if e.Status == snippet.StatusPublished {
			published = append(published, e)
		} else {
			draft = append(draft, e)
		}
	}

	return published, draft
}

// newSecretKey 生成 32 位十六进制的随机密钥.
func newSecretKey() string {
	seed := fmt.Sprintf("%s%d%d", uuid.NewString(), time.Now().Unix(), rand.IntN(9000)+1000)
	sum := md5.Sum([]byte(seed))

	return hex.EncodeToString(sum[:])
}

// defaultMeta 无历史文档时的初始元信息.
func defaultMeta() Meta {
	return Meta{
		AutoDisable:       Yes,
		AutoPublish:       No,
		RemoveOnUninstall: No,
		ForceDisabled:     No,
	}
}

// carryMeta 沿用上一版文档的密钥与标志位，缺失的值取默认.
func carryMeta(prev *Document) Meta {
	m := defaultMeta()

	if prev != nil {
		m.SecretKey = prev.Meta.SecretKey
		keep(&m.AutoDisable, prev.Meta.AutoDisable)
		keep(&m.AutoPublish, prev.Meta.AutoPublish)
		keep(&m.RemoveOnUninstall, prev.Meta.RemoveOnUninstall)
		keep(&m.ForceDisabled, prev.Meta.ForceDisabled)
	}

	if m.SecretKey == "" {
		m.SecretKey = newSecretKey()
	}

	return m
}

func keep(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// toPHP 转为持久化用的 PHP 数组，键顺序固定.
func (d *Document) toPHP() *phpArray {
	root := newPHPArray()
	root.add("published", entriesToPHP(d.Published))
	root.add("draft", entriesToPHP(d.Draft))

	meta := newPHPArray()
	meta.add("secret_key", d.Meta.SecretKey)
	meta.add("force_disabled", d.Meta.ForceDisabled)
	meta.add("cached_at", d.Meta.CachedAt)
	meta.add("cached_version", d.Meta.CachedVersion)
	meta.add("cached_domain", d.Meta.CachedDomain)
	meta.add("auto_disable", d.Meta.AutoDisable)
	meta.add("auto_publish", d.Meta.AutoPublish)
	meta.add("remove_on_uninstall", d.Meta.RemoveOnUninstall)
	root.add("meta", meta)

	files := newPHPArray()
	for _, f := range d.ErrorFiles {
		files.push(f)
	}

	root.add("error_files", files)

	return root
}

func entriesToPHP(entries []Entry) *phpArray {
	arr := newPHPArray()

	for _, e := range entries {
		item := newPHPArray()
		item.add("name", e.Name)
		item.add("description", e.Description)
		item.add("type", e.Type)
		item.add("status", e.Status)
		item.add("tags", e.Tags)
		item.add("created_at", e.CreatedAt)
		item.add("updated_at", e.UpdatedAt)
		item.add("run_at", e.RunAt)
		item.add("priority", e.Priority)
		item.add("group", e.Group)
		item.add("condition", e.Condition)
		item.add("file_name", e.FileName)

		arr.add(e.FileName, item)
	}

	return arr
}

// documentFromPHP 从解析出的 PHP 数组还原文档，兼容旧版的 cashed_domain 键与以文件名为键的 error_files.
func documentFromPHP(v any) (*Document, error) {
	root, ok := v.(*phpArray)
	if !ok {
		return nil, fmt.Errorf("%w: document is not an array", errPHPSyntax)
	}

	doc := &Document{
		Published:  entriesFromPHP(root.array("published"), snippet.StatusPublished),
		Draft:      entriesFromPHP(root.array("draft"), snippet.StatusDraft),
		ErrorFiles: []string{},
	}

	if m := root.array("meta"); m != nil {
		doc.Meta = Meta{
			SecretKey:         m.str("secret_key"),
			ForceDisabled:     m.str("force_disabled"),
			CachedAt:          m.str("cached_at"),
			CachedVersion:     m.str("cached_version"),
			CachedDomain:      m.str("cached_domain"),
			AutoDisable:       m.str("auto_disable"),
			AutoPublish:       m.str("auto_publish"),
			RemoveOnUninstall: m.str("remove_on_uninstall"),
		}

		if doc.Meta.CachedDomain == "" {
			doc.Meta.CachedDomain = m.str("cashed_domain")
		}
	}

	if files := root.array("error_files"); files != nil {
		for _, e := range files.entries {
			if name, ok := e.key.(string); ok {
				doc.ErrorFiles = append(doc.ErrorFiles, name)
			} else if name := scalarString(e.value); name != "" {
				doc.ErrorFiles = append(doc.ErrorFiles, name)
			}
		}
	}

	return doc, nil
}

func entriesFromPHP(arr *phpArray, status string) []Entry {
	out := []Entry{}
	if arr == nil {
		return out
	}

	for _, e := range arr.entries {
		item, ok := e.value.(*phpArray)
		if !ok {
			continue
		}

		fileName := item.str("file_name")
		if fileName == "" {
			fileName = scalarString(e.key)
		}

		out = append(out, Entry{
			Name:        item.str("name"),
			Description: item.str("description"),
			Type:        item.str("type"),
			Status:      status,
			Tags:        item.str("tags"),
			CreatedAt:   item.str("created_at"),
			UpdatedAt:   item.str("updated_at"),
			RunAt:       item.str("run_at"),
			Priority:    snippet.NormalizePriority(item.str("priority")),
			Group:       item.str("group"),
			Condition:   item.str("condition"),
			FileName:    fileName,
		})
	}

	return out
}
