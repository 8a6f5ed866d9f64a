package configs

import (
	"github.com/spf13/viper"
)

// 日志输出格式.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = LogFormatConsole
	DefaultLogFilePath   = "logs/snipvault.log"
	DefaultLogMaxSize    = 50 // MB
	DefaultLogMaxBackups = 5
	DefaultLogMaxAge     = 14 // 天
)

// LogConfig 日志配置. stderr 始终输出，文件输出按需开启.
type LogConfig struct {
	Level      string `mapstructure:"level"       rule:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format     string `mapstructure:"format"      rule:"omitempty,oneof=console json"`
	EnableFile bool   `mapstructure:"enable_file"`
	FilePath   string `mapstructure:"file_path"   rule:"required_if=EnableFile true"`
	MaxSize    int    `mapstructure:"max_size_mb" rule:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" rule:"min=0"`
	MaxAge     int    `mapstructure:"max_age_days" rule:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.enable_file", false)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAge)
	v.SetDefault("log.compress", true)
}
