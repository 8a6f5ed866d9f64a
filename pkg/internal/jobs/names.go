package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobIndexRebuild = "index.rebuild"
)

// DefaultIndexRebuildCron 未配置时的重建周期：每 30 分钟.
const DefaultIndexRebuildCron = "*/30 * * * *"
