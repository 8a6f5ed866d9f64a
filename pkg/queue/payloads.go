package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 关联 ID，HTTP 请求中取自 X-Request-ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// SnippetRef 事件中携带的片段摘要.
type SnippetRef struct {
	FileName string `json:"file_name"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Type     string `json:"type"`
	Priority int    `json:"priority"`
}

// SnippetCreatedPayload 新片段已写入.
type SnippetCreatedPayload struct {
	Snippet SnippetRef `json:"snippet"`
	Actor   string     `json:"actor"`
}

// SnippetUpdatedPayload 片段已更新.
type SnippetUpdatedPayload struct {
	Snippet    SnippetRef `json:"snippet"`
	Actor      string     `json:"actor"`
	PrevStatus string     `json:"prev_status,omitempty"`
}

// SnippetStatusUpdatedPayload 片段状态切换.
type SnippetStatusUpdatedPayload struct {
	Snippet SnippetRef `json:"snippet"`
	Actor   string     `json:"actor"`
	From    string     `json:"from"`
	To      string     `json:"to"`
}

// SnippetDeletedPayload 片段已删除.
type SnippetDeletedPayload struct {
	FileName string `json:"file_name"`
	Actor    string `json:"actor"`
}

// IndexRebuiltPayload 索引已重建.
type IndexRebuiltPayload struct {
	Published  int    `json:"published"`
	Draft      int    `json:"draft"`
	ErrorFiles int    `json:"error_files"`
	Trigger    string `json:"trigger"` // cron、watch、api、cli、write
}
