// Package types 定义 HTTP 层与服务层之间交换的请求与响应结构.
package types

import (
	"github.com/yeisme/snipvault/pkg/internal/index"
	"github.com/yeisme/snipvault/pkg/internal/snippet"
)

// SaveSnippetRequest 新建或更新片段的请求体，meta 为有序对象.
type SaveSnippetRequest struct {
	Meta *snippet.Meta `binding:"required" json:"meta"`
	Code string        `json:"code"`
}

// UpdateStatusRequest 切换片段状态.
type UpdateStatusRequest struct {
	Status string `binding:"required" json:"status"`
}

// ListSnippetsQuery 分页参数.
type ListSnippetsQuery struct {
	PerPage int    `form:"per_page" rule:"omitempty,min=1,max=200"`
	Page    int    `form:"page"     rule:"omitempty,min=1"`
	Status  string `form:"status"   rule:"omitempty,snippet_status"`
}

// SnippetDetail 单个片段，code 为编辑用的展示代码.
type SnippetDetail struct {
	FileName string        `json:"file_name"`
	Meta     *snippet.Meta `json:"meta"`
	Code     string        `json:"code"`
}

// SnippetSaved 写入后的结果.
type SnippetSaved struct {
	FileName string `json:"file_name"`
	Status   string `json:"status"`
}

// SnippetPage 分页结果.
type SnippetPage struct {
	Data        []SnippetDetail `json:"data"`
	Total       int             `json:"total"`
	PerPage     int             `json:"per_page"`
	CurrentPage int             `json:"current_page"`
	LastPage    int             `json:"last_page"`
}

// SettingsRequest 修改设置，空字段保持原值.
type SettingsRequest struct {
	AutoDisable       string `json:"auto_disable"        rule:"omitempty,yesno"`
	AutoPublish       string `json:"auto_publish"        rule:"omitempty,yesno"`
	RemoveOnUninstall string `json:"remove_on_uninstall" rule:"omitempty,yesno"`
}

// ToSettings 转为索引设置.
func (r SettingsRequest) ToSettings() index.Settings {
	return index.Settings{
		AutoDisable:       r.AutoDisable,
		AutoPublish:       r.AutoPublish,
		RemoveOnUninstall: r.RemoveOnUninstall,
	}
}

// RebuildResponse 重建索引的结果摘要.
type RebuildResponse struct {
	Published  int    `json:"published"`
	Draft      int    `json:"draft"`
	ErrorFiles int    `json:"error_files"`
	CachedAt   string `json:"cached_at"`
}
