// Package snippet 定义代码片段（snippet）记录的数据模型，以及记录文件的编解码与文件名分配.
//
// 一个记录文件同时是结构化数据与可直接被宿主加载的可执行内容：
//
//	<?php
//	// <Internal Doc Start>
//	/*
//	*
//	* @name: Hello
//	* @status: draft
//	*/
//	?>
//	<?php if (!defined("ABSPATH")) { return;} // <Internal Doc End> ?>
//	<?php
//	echo "hello";
//
// 本包不解释 body，只负责包装与拆包.
package snippet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 已知的元数据键.
const (
	KeyName        = "name"
	KeyDescription = "description"
	KeyType        = "type"
	KeyStatus      = "status"
	KeyTags        = "tags"
	KeyCreatedAt   = "created_at"
	KeyUpdatedAt   = "updated_at"
	KeyRunAt       = "run_at"
	KeyPriority    = "priority"
	KeyGroup       = "group"
	KeyCondition   = "condition"
	KeyCreatedBy   = "created_by"
	KeyUpdatedBy   = "updated_by"
	KeyIsValid     = "is_valid"
)

const (
	StatusPublished = "published"
	StatusDraft     = "draft"

	// TypePHP 可执行 PHP 内容，写入时 body 需要带 PHP 起始标签.
	TypePHP = "PHP"

	DefaultPriority = 10

	// TimeLayout 元数据中时间戳的格式.
	TimeLayout = "2006-01-02 15:04:05"
)

var knownKeys = map[string]struct{}{
	KeyName: {}, KeyDescription: {}, KeyType: {}, KeyStatus: {}, KeyTags: {},
	KeyCreatedAt: {}, KeyUpdatedAt: {}, KeyRunAt: {}, KeyPriority: {}, KeyGroup: {},
	KeyCondition: {}, KeyCreatedBy: {}, KeyUpdatedBy: {}, KeyIsValid: {},
}

// IsKnownKey 报告 key 是否属于固定的元数据键集合.
func IsKnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

// Meta 是有序的元数据映射：已知键提供类型化访问，未知键原样保留（见 Extras），
// 以保证向前兼容字段在读写往返中不丢失.
type Meta struct {
	keys   []string
	values map[string]string
}

// NewMeta 按 key, value 成对创建 Meta，奇数个参数时最后一个 key 的值为空.
func NewMeta(pairs ...string) *Meta {
	m := &Meta{values: make(map[string]string, len(pairs)/2)}

	for i := 0; i < len(pairs); i += 2 {
		v := ""
		if i+1 < len(pairs) {
			v = pairs[i+1]
		}

		m.Set(pairs[i], v)
	}

	return m
}

// Set 设置键值，已存在的键保持原位置.
func (m *Meta) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}

	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.values[key] = value
}

// SetDefault 仅在键不存在时设置.
func (m *Meta) SetDefault(key, value string) {
	if !m.Has(key) {
		m.Set(key, value)
	}
}

// Get 返回键值及是否存在.
func (m *Meta) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}

	v, ok := m.values[key]

	return v, ok
}

// Value 返回键值，不存在时为空串.
func (m *Meta) Value(key string) string {
	v, _ := m.Get(key)
	return v
}

// Has 报告键是否存在.
func (m *Meta) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete 删除键.
func (m *Meta) Delete(key string) {
	if !m.Has(key) {
		return
	}

	delete(m.values, key)

	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys 按插入顺序返回所有键.
func (m *Meta) Keys() []string {
	if m == nil {
		return nil
	}

	out := make([]string, len(m.keys))
	copy(out, m.keys)

	return out
}

// Len 返回键数量.
func (m *Meta) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Extras 返回不在已知键集合中的键，保持顺序.
func (m *Meta) Extras() []string {
	var out []string

	for _, k := range m.Keys() {
		if !IsKnownKey(k) {
			out = append(out, k)
		}
	}

	return out
}

// Clone 深拷贝.
func (m *Meta) Clone() *Meta {
	c := &Meta{values: make(map[string]string, m.Len())}

	for _, k := range m.Keys() {
		c.Set(k, m.values[k])
	}

	return c
}

// Merge 以 defaults 的键顺序为先，m 中的值覆盖默认值，m 独有的键追加在后.
func Merge(defaults, m *Meta) *Meta {
	out := defaults.Clone()

	for _, k := range m.Keys() {
		out.Set(k, m.values[k])
	}

	return out
}

func (m *Meta) Name() string        { return m.Value(KeyName) }
func (m *Meta) Description() string { return m.Value(KeyDescription) }
func (m *Meta) Type() string        { return m.Value(KeyType) }
func (m *Meta) Tags() string        { return m.Value(KeyTags) }
func (m *Meta) CreatedAt() string   { return m.Value(KeyCreatedAt) }
func (m *Meta) UpdatedAt() string   { return m.Value(KeyUpdatedAt) }
func (m *Meta) RunAt() string       { return m.Value(KeyRunAt) }
func (m *Meta) Group() string       { return m.Value(KeyGroup) }
func (m *Meta) Condition() string   { return m.Value(KeyCondition) }

// Status 返回规范化后的状态，缺省或非 published 均视为 draft.
func (m *Meta) Status() string {
	return NormalizeStatus(m.Value(KeyStatus))
}

// Priority 返回规范化后的优先级.
func (m *Meta) Priority() int {
	return NormalizePriority(m.Value(KeyPriority))
}

// NormalizeStatus 只有 "published" 保持不变，其它值一律为 draft.
func NormalizeStatus(s string) string {
	if s == StatusPublished {
		return StatusPublished
	}

	return StatusDraft
}

// NormalizePriority 把任意输入规范为正整数：非数字、小于 1 的值回退为 DefaultPriority，小数向下截断.
func NormalizePriority(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return DefaultPriority
	}

	if f > math.MaxInt32 {
		return math.MaxInt32
	}

	return int(f)
}

// MarshalJSON 按键顺序输出 JSON 对象.
func (m *Meta) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}

		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}

		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON 读取 JSON 对象并保留键顺序；数字与布尔值转为字符串.
func (m *Meta) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		*m = Meta{values: map[string]string{}}
		return nil
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("meta must be a JSON object")
	}

	out := Meta{values: map[string]string{}}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}

		key, _ := kt.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("meta %q: %w", key, err)
		}

		switch v := raw.(type) {
		case nil:
			out.Set(key, "")
		case string:
			out.Set(key, v)
		case json.Number:
			out.Set(key, v.String())
		case bool:
			if v {
				out.Set(key, "1")
			} else {
				out.Set(key, "0")
			}
		default:
			return fmt.Errorf("meta %q: value must be a scalar", key)
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = out

	return nil
}

// Record 是一条存储的代码片段：文件名即 ID.
type Record struct {
	ID   string `json:"file_name"`
	Meta *Meta  `json:"meta"`
	Body string `json:"code"`
}

// Status 返回记录状态，元数据缺省时为 draft.
func (r *Record) Status() string {
	return r.Meta.Status()
}

// DisplayCode 返回用于编辑展示的代码：PHP 记录去掉开头的起始标签以及随后的换行.
func (r *Record) DisplayCode() string {
	if r.Meta.Type() != TypePHP {
		return r.Body
	}

	code := strings.TrimPrefix(r.Body, OpenTag)

	return strings.TrimLeft(code, "\r\n")
}
