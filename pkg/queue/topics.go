// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：<域>.<动作>，实际发布时由 mq.Client 加上配置的前缀（默认 snipvault.）.
const (
	// 片段生命周期.
	TopicSnippetCreated       = "snippet.created"        // 新片段已写入磁盘
	TopicSnippetUpdated       = "snippet.updated"        // 片段内容或元数据已更新
	TopicSnippetStatusUpdated = "snippet.status_updated" // 片段在 published/draft 之间切换
	TopicSnippetDeleted       = "snippet.deleted"        // 片段文件已删除

	// 索引文档.
	TopicIndexRebuilt = "index.rebuilt" // 索引文档已全量重建
)

// SnippetTopics 片段相关主题集合.
var SnippetTopics = []string{
	TopicSnippetCreated, TopicSnippetUpdated, TopicSnippetStatusUpdated, TopicSnippetDeleted,
}
