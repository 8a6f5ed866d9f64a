package configs

import "github.com/spf13/viper"

const (
	DefaultStorageDir       = "./snippet-storage" // 片段存储目录
	DefaultStorageIndexFile = "index.php"         // 索引文件名，同时是保留文件名
	DefaultAllocator        = "sequence"          // 文件名分配策略
)

// StorageConfig 片段存储目录配置.
type StorageConfig struct {
	Dir       string `mapstructure:"dir"        rule:"required"`
	IndexFile string `mapstructure:"index_file" rule:"required,endswith=.php"`
	// Allocator 文件名分配策略：sequence（记录数序号）或 ulid（单调唯一 id）
	Allocator string `mapstructure:"allocator"  rule:"oneof=sequence ulid"`
}

func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.dir", DefaultStorageDir)
	v.SetDefault("storage.index_file", DefaultStorageIndexFile)
	v.SetDefault("storage.allocator", DefaultAllocator)
}
