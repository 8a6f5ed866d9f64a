package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	ctxPkg "github.com/yeisme/snipvault/pkg/context"
	"github.com/yeisme/snipvault/pkg/internal/index"
	"github.com/yeisme/snipvault/pkg/internal/repository"
	"github.com/yeisme/snipvault/pkg/internal/snippet"
	"github.com/yeisme/snipvault/pkg/internal/types"
	nlog "github.com/yeisme/snipvault/pkg/log"
	"github.com/yeisme/snipvault/pkg/queue"
	"github.com/yeisme/snipvault/pkg/rule"
)

// 重建索引的触发来源.
const (
	TriggerWrite = "write"
	TriggerAPI   = "api"
	TriggerCLI   = "cli"
	TriggerCron  = "cron"
	TriggerWatch = "watch"
)

var requiredMeta = []string{snippet.KeyName, snippet.KeyStatus, snippet.KeyType}

// ContentValidator 在写入前检查代码内容，例如交给外部 linter.
type ContentValidator interface {
	Validate(ctx context.Context, typ, code string) error
}

// ContentValidatorFunc 函数形式的 ContentValidator.
type ContentValidatorFunc func(ctx context.Context, typ, code string) error

// Validate 实现 ContentValidator.
func (f ContentValidatorFunc) Validate(ctx context.Context, typ, code string) error {
	return f(ctx, typ, code)
}

// SnippetService 片段业务逻辑：元数据校验、代码规范化、写入后刷新索引并发布事件.
type SnippetService struct {
	repo      *repository.Repository
	index     *index.Store
	events    *queue.Emitter
	validator ContentValidator
	logger    *zerolog.Logger
}

// Option 配置 SnippetService.
type Option func(*SnippetService)

// WithContentValidator 注入代码校验器.
func WithContentValidator(v ContentValidator) Option {
	return func(s *SnippetService) { s.validator = v }
}

// NewSnippets 以显式依赖创建服务，events 可以为 nil.
func NewSnippets(repo *repository.Repository, idx *index.Store, events *queue.Emitter, opts ...Option) *SnippetService {
	s := &SnippetService{
		repo:   repo,
		index:  idx,
		events: events,
		logger: nlog.Component("service"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewSnippetService 从 context 中的存储管理器获取依赖.
func NewSnippetService(c context.Context, opts ...Option) *SnippetService {
	mgr := ctxPkg.GetManager(c)
	if mgr == nil {
		nlog.Logger().Fatal().Msg("storage manager not initialized")
	}

	return NewSnippets(mgr.Repository(), mgr.Index(), mgr.Events(), opts...)
}

// Create 新建片段，状态总是 draft.
func (s *SnippetService) Create(ctx context.Context, req types.SaveSnippetRequest) (*types.SnippetSaved, error) {
	meta, err := checkMeta(req.Meta)
	if err != nil {
		return nil, err
	}

	meta.Set(snippet.KeyStatus, snippet.StatusDraft)

	code := req.Code
	if meta.Type() == snippet.TypePHP {
		if strings.HasPrefix(strings.TrimSpace(code), snippet.OpenTag) {
			return nil, invalid("code", "please remove %s from the beginning of the code", snippet.OpenTag)
		}

		code = wrapPHP(code)
	}

	if err := s.validate(ctx, meta.Type(), code); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, code, meta)
	if err != nil {
		return nil, err
	}

	s.refresh(ctx)

	s.emit(ctx, queue.TopicSnippetCreated, s.events.SnippetCreated(ctx, queue.SnippetCreatedPayload{
		Snippet: ref(id, meta),
		Actor:   ctxPkg.GetActor(ctx),
	}, s.header(ctx)))

	return &types.SnippetSaved{FileName: id, Status: meta.Status()}, nil
}

// Update 覆盖已有片段，created_at / created_by 由仓库保留.
func (s *SnippetService) Update(ctx context.Context, id string, req types.SaveSnippetRequest) (*types.SnippetSaved, error) {
	meta, err := checkMeta(req.Meta)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	meta.Set(snippet.KeyStatus, snippet.NormalizeStatus(meta.Status()))

	code := req.Code
	if meta.Type() == snippet.TypePHP {
		code = wrapPHP(stripOpenTag(code))
	}

	if err := s.validate(ctx, meta.Type(), code); err != nil {
		return nil, err
	}

	if _, err := s.repo.Update(ctx, id, code, meta); err != nil {
		return nil, err
	}

	s.refresh(ctx)

	s.emit(ctx, queue.TopicSnippetUpdated, s.events.SnippetUpdated(ctx, queue.SnippetUpdatedPayload{
		Snippet:    ref(id, meta),
		Actor:      ctxPkg.GetActor(ctx),
		PrevStatus: current.Status(),
	}, s.header(ctx)))

	return &types.SnippetSaved{FileName: id, Status: meta.Status()}, nil
}

// UpdateStatus 切换状态，非 published 一律视为 draft.
func (s *SnippetService) UpdateStatus(ctx context.Context, id, status string) (*types.SnippetSaved, error) {
	rec, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	from := rec.Status()
	to := snippet.NormalizeStatus(status)

	meta := rec.Meta.Clone()
	meta.Set(snippet.KeyStatus, to)

	if _, err := s.repo.Update(ctx, id, rec.Body, meta); err != nil {
		return nil, err
	}

	s.refresh(ctx)

	actor := ctxPkg.GetActor(ctx)
	s.emit(ctx, queue.TopicSnippetStatusUpdated, s.events.SnippetStatusUpdated(ctx, queue.SnippetStatusUpdatedPayload{
		Snippet: ref(id, meta),
		Actor:   actor,
		From:    from,
		To:      to,
	}, s.header(ctx)))
	s.emit(ctx, queue.TopicSnippetUpdated, s.events.SnippetUpdated(ctx, queue.SnippetUpdatedPayload{
		Snippet:    ref(id, meta),
		Actor:      actor,
		PrevStatus: from,
	}, s.header(ctx)))

	return &types.SnippetSaved{FileName: id, Status: to}, nil
}

// Delete 删除片段.
func (s *SnippetService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Find(ctx, id); err != nil && !errors.Is(err, snippet.ErrNotRecord) {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.refresh(ctx)

	s.emit(ctx, queue.TopicSnippetDeleted, s.events.SnippetDeleted(ctx, queue.SnippetDeletedPayload{
		FileName: id,
		Actor:    ctxPkg.GetActor(ctx),
	}, s.header(ctx)))

	return nil
}

// Find 读取片段，PHP 代码去掉开头的起始标签.
func (s *SnippetService) Find(ctx context.Context, id string) (*types.SnippetDetail, error) {
	rec, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	return detail(rec), nil
}

// Paginate 按文件名倒序分页，status 为空时不过滤.
func (s *SnippetService) Paginate(ctx context.Context, q types.ListSnippetsQuery) (*types.SnippetPage, error) {
	if err := rule.ValidateStruct(q); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	p, err := s.repo.Paginate(ctx, q.PerPage, q.Page, q.Status)
	if err != nil {
		return nil, err
	}

	out := &types.SnippetPage{
		Data:        make([]types.SnippetDetail, 0, len(p.Data)),
		Total:       p.Total,
		PerPage:     p.PerPage,
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
	}

	for _, rec := range p.Data {
		out.Data = append(out.Data, *detail(rec))
	}

	return out, nil
}

// Index 返回索引文档.
func (s *SnippetService) Index(ctx context.Context) (*index.Document, error) {
	return s.index.Document(ctx)
}

// Rebuild 全量重建索引并发布 index.rebuilt.
func (s *SnippetService) Rebuild(ctx context.Context, trigger string) (*index.Document, error) {
	doc, err := s.index.Rebuild(ctx)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, queue.TopicIndexRebuilt, s.events.IndexRebuilt(ctx, queue.IndexRebuiltPayload{
		Published:  len(doc.Published),
		Draft:      len(doc.Draft),
		ErrorFiles: len(doc.ErrorFiles),
		Trigger:    trigger,
	}, s.header(ctx)))

	return doc, nil
}

// Settings 返回当前设置.
func (s *SnippetService) Settings(ctx context.Context) (index.Settings, error) {
	return s.index.Settings(ctx)
}

// SaveSettings 校验并保存设置.
func (s *SnippetService) SaveSettings(ctx context.Context, req types.SettingsRequest) (index.Settings, error) {
	if err := rule.ValidateStruct(req); err != nil {
		return index.Settings{}, &ValidationError{Message: err.Error()}
	}

	return s.index.SaveSettings(ctx, req.ToSettings())
}

// refresh 写入成功后重建索引；失败只记录日志，下一次读取或定时任务会再次重建.
func (s *SnippetService) refresh(ctx context.Context) {
	if _, err := s.Rebuild(ctx, TriggerWrite); err != nil {
		s.logger.Error().Err(err).Msg("rebuild index after write")
	}
}

func (s *SnippetService) validate(ctx context.Context, typ, code string) error {
	if s.validator == nil {
		return nil
	}

	if err := s.validator.Validate(ctx, typ, code); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return err
		}

		return invalid("code", "%v", err)
	}

	return nil
}

func (s *SnippetService) header(ctx context.Context) func(*queue.EventHeader) {
	return queue.WithTraceID(ctxPkg.GetRequestID(ctx))
}

func (s *SnippetService) emit(ctx context.Context, topic string, err error) {
	if err != nil {
		l := ctxPkg.WithRequestLogger(ctx, *s.logger)
		l.Warn().Err(err).Str("topic", topic).Msg("publish event")
	}
}

// checkMeta 复制元数据并检查必填键.
func checkMeta(in *snippet.Meta) (*snippet.Meta, error) {
	if in == nil {
		return nil, invalid("meta", "meta is required")
	}

	for _, key := range requiredMeta {
		if strings.TrimSpace(in.Value(key)) == "" {
			return nil, invalid(key, "%s is required", key)
		}
	}

	return in.Clone(), nil
}

// wrapPHP 去掉末尾的 ?> 字符并补上起始标签.
func wrapPHP(code string) string {
	return snippet.OpenTag + "\n" + strings.TrimRight(code, "?>")
}

func stripOpenTag(code string) string {
	trimmed := strings.TrimLeft(code, " \t\r\n")
	if !strings.HasPrefix(trimmed, snippet.OpenTag) {
		return code
	}

	return strings.TrimLeft(strings.TrimPrefix(trimmed, snippet.OpenTag), "\r\n")
}

func ref(id string, meta *snippet.Meta) queue.SnippetRef {
	return queue.SnippetRef{
		FileName: id,
		Name:     meta.Name(),
		Status:   meta.Status(),
		Type:     meta.Type(),
		Priority: meta.Priority(),
	}
}

func detail(rec *snippet.Record) *types.SnippetDetail {
	return &types.SnippetDetail{
		FileName: rec.ID,
		Meta:     rec.Meta,
		Code:     rec.DisplayCode(),
	}
}
