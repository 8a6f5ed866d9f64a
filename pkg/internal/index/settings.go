package index

import (
	"context"
	"errors"
	"slices"
)

// Settings 可由用户修改的全局开关.
type Settings struct {
	AutoDisable       string `json:"auto_disable"        rule:"omitempty,oneof=yes no"`
	AutoPublish       string `json:"auto_publish"        rule:"omitempty,oneof=yes no"`
	RemoveOnUninstall string `json:"remove_on_uninstall" rule:"omitempty,oneof=yes no"`
}

// DefaultSettings 默认设置.
func DefaultSettings() Settings {
	return Settings{AutoDisable: Yes, AutoPublish: No, RemoveOnUninstall: No}
}

// merge 以 s 中的非空值覆盖 base.
func (s Settings) merge(base Settings) Settings {
	keep(&base.AutoDisable, s.AutoDisable)
	keep(&base.AutoPublish, s.AutoPublish)
	keep(&base.RemoveOnUninstall, s.RemoveOnUninstall)

	return base
}

// Settings 返回当前设置，未保存或为空的项取默认值.
func (s *Store) Settings(_ context.Context) (Settings, error) {
	doc, err := s.load()

	switch {
	case err == nil:
	case errors.Is(err, ErrNoIndex), errors.Is(err, ErrCorrupt):
		return DefaultSettings(), nil
	default:
		return Settings{}, err
	}

	stored := Settings{
		AutoDisable:       doc.Meta.AutoDisable,
		AutoPublish:       doc.Meta.AutoPublish,
		RemoveOnUninstall: doc.Meta.RemoveOnUninstall,
	}

	return stored.merge(DefaultSettings()), nil
}

// SaveSettings 只改写文档的 meta 部分，不触发扫描；in 中为空的项保持原值.
func (s *Store) SaveSettings(ctx context.Context, in Settings) (Settings, error) {
	doc, err := s.update(ctx, func(doc *Document) {
		next := in.merge(Settings{
			AutoDisable:       doc.Meta.AutoDisable,
			AutoPublish:       doc.Meta.AutoPublish,
			RemoveOnUninstall: doc.Meta.RemoveOnUninstall,
		}).merge(DefaultSettings())

		doc.Meta.AutoDisable = next.AutoDisable
		doc.Meta.AutoPublish = next.AutoPublish
		doc.Meta.RemoveOnUninstall = next.RemoveOnUninstall
	})
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		AutoDisable:       doc.Meta.AutoDisable,
		AutoPublish:       doc.Meta.AutoPublish,
		RemoveOnUninstall: doc.Meta.RemoveOnUninstall,
	}, nil
}

// SecretKey 返回密钥，索引不存在时先重建以生成并持久化密钥.
func (s *Store) SecretKey(ctx context.Context) (string, error) {
	doc, err := s.load()
	if err == nil && doc.Meta.SecretKey != "" {
		return doc.Meta.SecretKey, nil
	}

	if err != nil && !errors.Is(err, ErrNoIndex) && !errors.Is(err, ErrCorrupt) {
		return "", err
	}

	if doc, err = s.Rebuild(ctx); err != nil {
		return "", err
	}

	return doc.Meta.SecretKey, nil
}

// ErrorFiles 返回记录在案的损坏文件.
func (s *Store) ErrorFiles(_ context.Context) ([]string, error) {
	doc, err := s.load()

	switch {
	case err == nil:
		return doc.ErrorFiles, nil
	case errors.Is(err, ErrNoIndex), errors.Is(err, ErrCorrupt):
		return []string{}, nil
	default:
		return nil, err
	}
}

// MarkErrorFile 把文件加入 error_files.
func (s *Store) MarkErrorFile(ctx context.Context, name string) error {
	_, err := s.update(ctx, func(doc *Document) {
		if !slices.Contains(doc.ErrorFiles, name) {
			doc.ErrorFiles = append(doc.ErrorFiles, name)
		}
	})

	return err
}

// ClearErrorFile 把文件移出 error_files.
func (s *Store) ClearErrorFile(ctx context.Context, name string) error {
	_, err := s.update(ctx, func(doc *Document) {
		doc.ErrorFiles = slices.DeleteFunc(doc.ErrorFiles, func(f string) bool { return f == name })
	})

	return err
}
