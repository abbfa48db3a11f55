package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var valid = validator.New()

// EnvPrefix 环境变量前缀（SCOPE_PLUGIN_SOCKET_DIR -> socket.dir）
const EnvPrefix = "SCOPE_PLUGIN"

// Config 插件进程配置（启动时构造一次，显式传递给各组件）
type Config struct {
	Plugin  PluginConfig  `yaml:"plugin" mapstructure:"plugin" comment:"插件描述信息"`
	Socket  SocketConfig  `yaml:"socket" mapstructure:"socket" comment:"Unix socket 配置"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report" comment:"静态容器指标（metadata 变体）"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server" comment:"HTTP服务配置"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics" comment:"自监控指标配置"`
	Log     ZapLogConfig  `yaml:"log" mapstructure:"log" comment:"日志配置"`
	Banner  bool          `yaml:"banner" mapstructure:"banner" comment:"启动时是否打印banner"`
}

// PluginConfig 插件身份（Plugin Descriptor 的可配置部分）
type PluginConfig struct {
	ID          string `yaml:"id" mapstructure:"id" validate:"required,max=64" comment:"插件ID，同时决定socket文件名"`
	Label       string `yaml:"label" mapstructure:"label" validate:"required" comment:"展示名称"`
	Description string `yaml:"description" mapstructure:"description" comment:"描述"`
}

// SocketConfig socket 位置，Path 非空时优先于 Dir/<id>.sock
type SocketConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir" validate:"required" comment:"插件socket目录"`
	Path string `yaml:"path" mapstructure:"path" comment:"完整socket路径（可选）"`
}

// ReportConfig metadata 变体返回的静态指标
type ReportConfig struct {
	NodeID      string  `yaml:"node-id" mapstructure:"node-id" validate:"required" comment:"节点ID"`
	MetricName  string  `yaml:"metric-name" mapstructure:"metric-name" validate:"required" comment:"指标名"`
	MetricLabel string  `yaml:"metric-label" mapstructure:"metric-label" validate:"required" comment:"UI展示名"`
	Value       string  `yaml:"value" mapstructure:"value" validate:"required" comment:"指标值（字符串）"`
	Priority    float64 `yaml:"priority" mapstructure:"priority" validate:"gte=0" comment:"展示优先级，大于10隐藏"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout" mapstructure:"shutdown-timeout" validate:"required,gt=0" comment:"优雅关闭超时（如5s）"`
}

// MetricsConfig 自监控指标，走独立的 unix socket，不占用插件端点
type MetricsConfig struct {
	Enable  bool   `yaml:"enable" mapstructure:"enable" comment:"是否暴露Prometheus指标"`
	Socket  string `yaml:"socket" mapstructure:"socket" validate:"required_if=Enable true" comment:"指标socket路径"`
	Process bool   `yaml:"process" mapstructure:"process" comment:"是否注册进程指标"`
}

// ZapLogConfig 日志配置，Path 为空时只输出到 stdout
type ZapLogConfig struct {
	Level     string `yaml:"level" mapstructure:"level" validate:"required,oneof=debug info warn error" comment:"日志级别"`
	Format    string `yaml:"format" mapstructure:"format" validate:"required,oneof=json console" comment:"日志格式（json/console）"`
	Path      string `yaml:"path" mapstructure:"path" comment:"日志文件目录（可选）"`
	MaxSize   int    `yaml:"max-size" mapstructure:"max-size" validate:"gte=0" comment:"单个日志文件最大大小（MB）"`
	MaxBackup int    `yaml:"max-backup" mapstructure:"max-backup" validate:"gte=0" comment:"日志文件最大备份数（max-age 为0时生效）"`
	MaxAge    int    `yaml:"max-age" mapstructure:"max-age" validate:"gte=0" comment:"日志文件最大保存天数"`
}

// NewDefaultConfig 默认配置，与原始示例插件保持一致
func NewDefaultConfig() *Config {
	return &Config{
		Plugin: PluginConfig{
			ID:          "volume-count",
			Label:       "Volume Counts",
			Description: "Shows how many volumes each container has mounted",
		},
		Socket: SocketConfig{
			Dir: "/var/run/scope/plugins",
		},
		Report: ReportConfig{
			NodeID:      "abcd1234;<container>",
			MetricName:  "volume_count",
			MetricLabel: "# Volumes",
			Value:       "1",
			Priority:    0.1,
		},
		Server: ServerConfig{
			ShutdownTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enable:  false,
			Socket:  "",
			Process: true,
		},
		Log: ZapLogConfig{
			Level:     "info",
			Format:    "console",
			Path:      "",
			MaxSize:   100,
			MaxBackup: 30,
			MaxAge:    7,
		},
		Banner: true,
	}
}

// SocketPath 插件 socket 的最终路径
func (c *Config) SocketPath() string {
	if c.Socket.Path != "" {
		return c.Socket.Path
	}
	return filepath.Join(c.Socket.Dir, c.Plugin.ID+".sock")
}

// LoadConfigWithCli 加载配置（Flags > ENV > YAML > 默认值）
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	cfg := NewDefaultConfig()
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)，未指定时只用 flags/env/默认值
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	// 3. 绑定环境变量（SCOPE_PLUGIN_LOG_MAX_SIZE -> log.max-size）
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// 4. 反序列化到结构体（支持 time.Duration）
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// 5. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// YAML 输出当前生效配置
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	if err := c.Plugin.Validate(); err != nil {
		return err
	}
	if err := validateSocketPath("socket", c.SocketPath()); err != nil {
		return err
	}
	if c.Metrics.Enable {
		if err := validateSocketPath("metrics.socket", c.Metrics.Socket); err != nil {
			return err
		}
		if filepath.Clean(c.Metrics.Socket) == filepath.Clean(c.SocketPath()) {
			return fmt.Errorf("metrics.socket must differ from the plugin socket %s", c.SocketPath())
		}
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
