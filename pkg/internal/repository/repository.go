// Package repository 在一个目录中以单文件单记录的方式存储代码片段.
//
// 文件名即记录 ID；目录中同名的保留文件（默认 index.php）由索引模块维护，
// 对 Find/Delete/Update 而言等同于不存在.
package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"

	"github.com/yeisme/snipvault/pkg/internal/snippet"
	"github.com/yeisme/snipvault/pkg/log"
	"github.com/yeisme/snipvault/pkg/metrics"
)

// DefaultIndexFile 保留的索引文件名.
const DefaultIndexFile = "index.php"

const defaultPerPage = 10

// IndexEnsurer 保证索引文件存在，创建首条记录前调用.
type IndexEnsurer interface {
	EnsureIndex(ctx context.Context) error
}

// Repository 记录的增删改查.
type Repository struct {
	fs        billy.Filesystem
	indexFile string
	alloc     *snippet.Allocator
	ensurer   IndexEnsurer
	now       func() time.Time
	logger    *zerolog.Logger
}

// Option 配置 Repository.
type Option func(*Repository)

// WithIndexFile 设置保留的索引文件名.
func WithIndexFile(name string) Option {
	return func(r *Repository) {
		if name != "" {
			r.indexFile = name
		}
	}
}

// WithAllocator 设置文件名分配器.
func WithAllocator(a *snippet.Allocator) Option {
	return func(r *Repository) { r.alloc = a }
}

// WithClock 设置时间来源，测试用.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New 创建 Repository，fs 的根即存储目录.
func New(fs billy.Filesystem, opts ...Option) *Repository {
	r := &Repository{
		fs:        fs,
		indexFile: DefaultIndexFile,
		alloc:     snippet.NewAllocator(snippet.StrategySequence),
		now:       time.Now,
		logger:    log.Component("repository"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// UseIndex 设置索引保证者；索引依赖 Repository 扫描，因此在构造之后注入.
func (r *Repository) UseIndex(e IndexEnsurer) { r.ensurer = e }

// IndexFile 返回保留的索引文件名.
func (r *Repository) IndexFile() string { return r.indexFile }

// Filesystem 返回底层文件系统.
func (r *Repository) Filesystem() billy.Filesystem { return r.fs }

// ListOptions 列表参数.
type ListOptions struct {
	// Status 为空时不过滤.
	Status string
	// NewFirst 按创建顺序倒序.
	NewFirst bool
}

// ScanFailure 一个存在但无法读取或解析的文件.
type ScanFailure struct {
	File string
	Err  error
}

// ScanResult 目录扫描结果，Records 按 compareIDs 排序.
type ScanResult struct {
	Records  []*snippet.Record
	Failures []ScanFailure
}

// Scan 读取目录下全部记录：非记录文件与保留文件被跳过，损坏的文件记入 Failures.
func (r *Repository) Scan(ctx context.Context) (*ScanResult, error) {
	start := time.Now()

	res, err := r.scan(ctx)
	metrics.ObserveRepositoryOp("scan", start, err)

	return res, err
}

func (r *Repository) scan(ctx context.Context) (*ScanResult, error) {
	names, err := r.phpFiles()
	if err != nil {
		return nil, err
	}

	res := &ScanResult{}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if name == r.indexFile {
			continue
		}

		rec, err := r.read(name)

		switch {
		case err == nil:
			res.Records = append(res.Records, rec)
		case errors.Is(err, snippet.ErrMalformed), IsStorageError(err):
			r.logger.Warn().Err(err).Str("file", name).Msg("skip unreadable snippet")
			res.Failures = append(res.Failures, ScanFailure{File: name, Err: err})
		case errors.Is(err, snippet.ErrNotRecord):
			r.logger.Debug().Str("file", name).Msg("skip non-snippet file")
		default:
			return nil, err
		}
	}

	return res, nil
}

// List 返回记录列表.
func (r *Repository) List(ctx context.Context, opts ListOptions) ([]*snippet.Record, error) {
	start := time.Now()

	res, err := r.scan(ctx)
	if err != nil {
		metrics.ObserveRepositoryOp("list", start, err)
		return nil, err
	}

	records := res.Records
	if opts.Status != "" {
		records = slices.DeleteFunc(records, func(rec *snippet.Record) bool {
			return rec.Status() != opts.Status
		})
	}

	if opts.NewFirst {
		slices.Reverse(records)
	}

	metrics.ObserveRepositoryOp("list", start, nil)

	return records, nil
}

// Page 分页结果.
type Page struct {
	Data        []*snippet.Record `json:"data"`
	Total       int               `json:"total"`
	PerPage     int               `json:"per_page"`
	CurrentPage int               `json:"current_page"`
	LastPage    int               `json:"last_page"`
}

// Paginate 按创建顺序倒序分页，perPage 小于 1 时取 10，page 小于 1 时取 1.
func (r *Repository) Paginate(ctx context.Context, perPage, page int, status string) (*Page, error) {
	if perPage < 1 {
		perPage = defaultPerPage
	}

	if page < 1 {
		page = 1
	}

	records, err := r.List(ctx, ListOptions{Status: status, NewFirst: true})
	if err != nil {
		return nil, err
	}

	total := len(records)
	from := min((page-1)*perPage, total)
	to := min(from+perPage, total)

	return &Page{
		Data:        records[from:to],
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    int(math.Ceil(float64(total) / float64(perPage))),
	}, nil
}

// Find 按 ID 读取记录.
func (r *Repository) Find(ctx context.Context, id string) (*snippet.Record, error) {
	start := time.Now()

	rec, err := r.find(ctx, id)
	metrics.ObserveRepositoryOp("find", start, err)

	return rec, err
}

func (r *Repository) find(ctx context.Context, id string) (*snippet.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if id == r.indexFile {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if !validID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	rec, err := r.read(id)
	if err != nil {
		var se *StorageError
		if errors.As(err, &se) && errors.Is(se.Err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return nil, err
	}

	return rec, nil
}

// Exists 报告记录文件是否存在.
func (r *Repository) Exists(_ context.Context, id string) (bool, error) {
	if id == r.indexFile || !validID(id) {
		return false, nil
	}

	return exists(r.fs, id)
}

// Create 分配文件名并写入新记录，返回记录 ID.
func (r *Repository) Create(ctx context.Context, body string, meta *snippet.Meta) (string, error) {
	start := time.Now()

	id, err := r.create(ctx, body, meta)
	metrics.ObserveRepositoryOp("create", start, err)

	return id, err
}

func (r *Repository) create(ctx context.Context, body string, meta *snippet.Meta) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if r.ensurer != nil {
		if err := r.ensurer.EnsureIndex(ctx); err != nil {
			return "", fmt.Errorf("ensure index: %w", err)
		}
	}

	names, err := r.phpFiles()
	if err != nil {
		return "", err
	}

	// 序号总是计入保留的索引文件
	count := len(names)
	if !slices.Contains(names, r.indexFile) {
		count++
	}

	meta = r.withDefaults(ctx, meta, nil)
	id := r.alloc.FileName(meta.Name(), count)

	if id == r.indexFile {
		return "", fmt.Errorf("%w: %s", ErrNameInUse, id)
	}

	data, err := snippet.Encode(meta, body)
	if err != nil {
		return "", err
	}

	if err := writeFileExclusive(r.fs, id, data); err != nil {
		return "", err
	}

	r.logger.Debug().Str("file", id).Msg("snippet created")

	return id, nil
}

// Update 覆盖已有记录，保留 created_at / created_by 并刷新 updated_at，ID 不变.
func (r *Repository) Update(ctx context.Context, id, body string, meta *snippet.Meta) (string, error) {
	start := time.Now()

	err := r.update(ctx, id, body, meta)
	metrics.ObserveRepositoryOp("update", start, err)

	if err != nil {
		return "", err
	}

	return id, nil
}

func (r *Repository) update(ctx context.Context, id, body string, meta *snippet.Meta) error {
	current, err := r.find(ctx, id)
	if err != nil && !errors.Is(err, snippet.ErrNotRecord) {
		return err
	}

	var prev *snippet.Meta
	if current != nil {
		prev = current.Meta
	}

	data, err := snippet.Encode(r.withDefaults(ctx, meta, prev), body)
	if err != nil {
		return err
	}

	if err := WriteFileAtomic(r.fs, id, data); err != nil {
		return err
	}

	r.logger.Debug().Str("file", id).Msg("snippet updated")

	return nil
}

// Delete 删除记录.
func (r *Repository) Delete(ctx context.Context, id string) error {
	start := time.Now()

	err := r.delete(ctx, id)
	metrics.ObserveRepositoryOp("delete", start, err)

	return err
}

func (r *Repository) delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ok, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := r.fs.Remove(id); err != nil {
		return storageErr("remove", id, err)
	}

	r.logger.Debug().Str("file", id).Msg("snippet deleted")

	return nil
}

// Count 返回目录中 .php 文件数量（包含索引文件）.
func (r *Repository) Count(_ context.Context) (int, error) {
	names, err := r.phpFiles()
	return len(names), err
}

// withDefaults 补全元数据默认值并规范化 priority；prev 为更新前的元数据.
func (r *Repository) withDefaults(ctx context.Context, meta, prev *snippet.Meta) *snippet.Meta {
	now := r.now().Format(snippet.TimeLayout)
	actor := ActorFrom(ctx)

	defaults := snippet.NewMeta(
		snippet.KeyType, snippet.TypePHP,
		snippet.KeyStatus, snippet.StatusDraft,
		snippet.KeyCreatedBy, actor,
		snippet.KeyCreatedAt, now,
		snippet.KeyUpdatedAt, now,
		snippet.KeyIsValid, "1",
		snippet.KeyTags, "",
		snippet.KeyUpdatedBy, actor,
		snippet.KeyName, "Snippet Created @ "+now,
		snippet.KeyPriority, fmt.Sprint(snippet.DefaultPriority),
	)

	if meta == nil {
		meta = snippet.NewMeta()
	}

	out := snippet.Merge(defaults, meta)
	if prev != nil {
		// 更新时创建信息沿用旧值，修改信息总是重新生成
		for _, k := range []string{snippet.KeyCreatedAt, snippet.KeyCreatedBy} {
			if v := prev.Value(k); v != "" {
				out.Set(k, v)
			}
		}

		out.Set(snippet.KeyUpdatedAt, now)
		out.Set(snippet.KeyUpdatedBy, actor)
	}

	out.Set(snippet.KeyPriority, fmt.Sprint(out.Priority()))

	return out
}

// validID ID 必须是存储目录下的单个文件名.
func validID(id string) bool {
	if id == "" || strings.Contains(id, "..") {
		return false
	}

	return !strings.ContainsAny(id, `/\`)
}

func (r *Repository) read(name string) (*snippet.Record, error) {
	raw, err := util.ReadFile(r.fs, name)
	if err != nil {
		return nil, storageErr("read", name, err)
	}

	meta, body, err := snippet.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return &snippet.Record{ID: name, Meta: meta, Body: body}, nil
}

// phpFiles 按 compareIDs 排序返回目录中的 .php 文件.
func (r *Repository) phpFiles() ([]string, error) {
	infos, err := r.fs.ReadDir("/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, storageErr("readdir", "/", err)
	}

	var names []string

	for _, fi := range infos {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), snippet.Extension) {
			continue
		}

		names = append(names, fi.Name())
	}

	slices.SortFunc(names, compareIDs)

	return names, nil
}

var seqPrefix = regexp.MustCompile(`^(\d+)-`)

// compareIDs 带 "{n}-" 序号前缀的文件名按序号数值排在前面，其余以及序号相同者按文件名比较.
func compareIDs(a, b string) int {
	ma, mb := seqPrefix.FindStringSubmatch(a), seqPrefix.FindStringSubmatch(b)

	switch {
	case ma != nil && mb == nil:
		return -1
	case ma == nil && mb != nil:
		return 1
	case ma != nil:
		na, nb := strings.TrimLeft(ma[1], "0"), strings.TrimLeft(mb[1], "0")

		if c := cmp.Compare(len(na), len(nb)); c != 0 {
			return c
		}

		if c := strings.Compare(na, nb); c != 0 {
			return c
		}
	}

	return strings.Compare(a, b)
}
