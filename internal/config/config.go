package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"smam/backend/internal/domain"
)

// 邮件投递驱动
const (
	DriverSMTP   = "smtp"
	DriverResend = "resend"
	DriverLog    = "log"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host           string   // 监听地址，默认 "0.0.0.0"
	Port           int      // 监听端口，默认 1970
	TrustedProxies []string // 可信代理列表，为空表示信任任意来源的 X-Forwarded-For
	StaticDir      string   // 前端静态文件目录，为空表示不提供静态文件
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigin string // 唯一允许的来源，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 控制台格式输出
	File        string // 日志文件路径，为空表示只输出到标准输出
}

// MailConfig 定义邮件分发配置
type MailConfig struct {
	Driver         string        // 投递驱动: smtp | resend | log
	From           string        // 固定发件人，为空时使用提交者 "name <addr>"
	Recipients     []string      // 固定收件人列表
	Template       string        // 自定义 HTML 模板路径，为空使用内置模板
	AttemptTimeout time.Duration // 单个收件人投递超时
	MaxConcurrency int           // 分发并发上限，0 表示不限制
	RatePerSecond  float64       // 每秒投递上限，0 表示不限制
}

// DispatchDeadline 返回一次分发最长耗时的上界
//
// 并发上限为 limit 时收件人分 ceil(N/limit) 轮投递，每轮最长 AttemptTimeout；
// 限速时额外加上发起全部投递所需的等待时间。
func (m MailConfig) DispatchDeadline() time.Duration {
	n := len(m.Recipients)
	if n == 0 {
		return m.AttemptTimeout
	}

	rounds := 1
	if m.MaxConcurrency > 0 {
		rounds = (n + m.MaxConcurrency - 1) / m.MaxConcurrency
	}
	deadline := time.Duration(rounds) * m.AttemptTimeout

	if m.RatePerSecond > 0 {
		deadline += time.Duration(float64(n) / m.RatePerSecond * float64(time.Second))
	}
	return deadline
}

// SMTPConfig 定义外发 SMTP 中继配置
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      string // starttls | tls | none
	Helo     string
}

// ResendConfig 定义 Resend API 配置
type ResendConfig struct {
	APIKey string
}

// TokenConfig 定义提交令牌配置
type TokenConfig struct {
	TTL           time.Duration // 令牌有效期，默认 12 小时
	SweepInterval time.Duration // 过期令牌清理间隔，默认 1 小时
}

// LocaleConfig 定义前端文案配置
type LocaleConfig struct {
	Language string // 语言标签，如 "en"、"fr"
	Labels   bool   // 前端是否显示字段标签
}

// Config 是系统核心配置的根结构体
type Config struct {
	Server ServerConfig
	CORS   CORSConfig
	Log    LogConfig
	Mail   MailConfig
	SMTP   SMTPConfig
	Resend ResendConfig
	Token  TokenConfig
	Locale LocaleConfig
	Fields []domain.CustomField // 自定义表单字段，顺序与配置一致
}

// Load 从环境变量、.env 文件和设置文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（前缀 SMAM_，如 SMAM_SERVER_PORT）
//  2. .env 文件（如果存在）
//  3. 设置文件（SMAM_SETTINGS 指定，默认 ./settings.yaml，可选）
//  4. 默认值
//
// 收件人列表、SMTP 凭据和自定义字段通常放在设置文件中。
//
// 返回值:
//   - *Config: 加载成功的配置对象
//   - error: 设置文件无法解析或配置校验失败时返回错误
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix("smam")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := readSettings(v); err != nil {
		return nil, err
	}

	attemptTimeout, err := time.ParseDuration(v.GetString("mail.attempt_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid mail.attempt_timeout: %w", err)
	}

	ttl, err := time.ParseDuration(v.GetString("token.ttl"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid token.ttl: %q", v.GetString("token.ttl"))
	}

	sweepInterval, err := time.ParseDuration(v.GetString("token.sweep_interval"))
	if err != nil || sweepInterval <= 0 {
		return nil, fmt.Errorf("invalid token.sweep_interval: %q", v.GetString("token.sweep_interval"))
	}

	var fields []domain.CustomField
	if err := v.UnmarshalKey("fields", &fields); err != nil {
		return nil, fmt.Errorf("invalid fields: %w", err)
	}

	origin := strings.TrimSpace(v.GetString("cors.allowed_origin"))
	if origin == "" {
		origin = "*"
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			TrustedProxies: getList(v, "server.trusted_proxies"),
			StaticDir:      v.GetString("server.static_dir"),
		},
		CORS: CORSConfig{
			AllowedOrigin: origin,
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
		},
		Mail: MailConfig{
			Driver:         strings.ToLower(v.GetString("mail.driver")),
			From:           v.GetString("mail.from"),
			Recipients:     getList(v, "mail.recipients"),
			Template:       v.GetString("mail.template"),
			AttemptTimeout: attemptTimeout,
			MaxConcurrency: v.GetInt("mail.max_concurrency"),
			RatePerSecond:  v.GetFloat64("mail.rate_per_second"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			TLS:      strings.ToLower(v.GetString("smtp.tls")),
			Helo:     v.GetString("smtp.helo"),
		},
		Resend: ResendConfig{
			APIKey: v.GetString("resend.api_key"),
		},
		Token: TokenConfig{
			TTL:           ttl,
			SweepInterval: sweepInterval,
		},
		Locale: LocaleConfig{
			Language: v.GetString("locale.language"),
			Labels:   v.GetBool("locale.labels"),
		},
		Fields: fields,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 1970)
	v.SetDefault("server.trusted_proxies", "")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("cors.allowed_origin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("mail.driver", DriverSMTP)
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.recipients", "")
	v.SetDefault("mail.template", "")
	v.SetDefault("mail.attempt_timeout", "30s")
	v.SetDefault("mail.max_concurrency", 0)
	v.SetDefault("mail.rate_per_second", 0)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.tls", "starttls")
	v.SetDefault("smtp.helo", "localhost")
	v.SetDefault("resend.api_key", "")
	v.SetDefault("token.ttl", "12h")
	v.SetDefault("token.sweep_interval", "1h")
	v.SetDefault("locale.language", "en")
	v.SetDefault("locale.labels", true)
}

// readSettings 读取可选的设置文件
//
// 显式通过 SMAM_SETTINGS 指定的文件必须存在；默认的 settings.yaml 不存在时静默跳过。
func readSettings(v *viper.Viper) error {
	path, explicit := os.LookupEnv("SMAM_SETTINGS")
	if !explicit || path == "" {
		path = "settings.yaml"
		explicit = false
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return fmt.Errorf("settings file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read settings file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Mail.Driver {
	case DriverSMTP:
		if c.SMTP.Host == "" {
			return errors.New("smtp.host must be set when mail.driver is smtp")
		}
		switch c.SMTP.TLS {
		case "starttls", "tls", "none":
		default:
			return fmt.Errorf("invalid smtp.tls %q (want starttls, tls or none)", c.SMTP.TLS)
		}
	case DriverResend:
		if c.Resend.APIKey == "" {
			return errors.New("resend.api_key must be set when mail.driver is resend")
		}
	case DriverLog:
	default:
		return fmt.Errorf("unknown mail.driver %q", c.Mail.Driver)
	}

	if o := c.CORS.AllowedOrigin; o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
		return fmt.Errorf("invalid cors.allowed_origin %q (want * or an http(s) origin)", o)
	}

	if len(c.Mail.Recipients) == 0 {
		return errors.New("mail.recipients must not be empty")
	}
	for _, r := range c.Mail.Recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", r, err)
		}
	}

	if c.Mail.From != "" {
		if _, err := mail.ParseAddress(c.Mail.From); err != nil {
			return fmt.Errorf("invalid mail.from %q: %w", c.Mail.From, err)
		}
	}

	if c.Mail.AttemptTimeout <= 0 {
		return errors.New("mail.attempt_timeout must be positive")
	}
	if c.Mail.MaxConcurrency < 0 {
		return errors.New("mail.max_concurrency must not be negative")
	}
	if c.Mail.RatePerSecond < 0 {
		return errors.New("mail.rate_per_second must not be negative")
	}

	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if err := f.Check(); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate custom field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	return nil
}

// getList 读取列表配置，兼容逗号分隔字符串（环境变量）与 YAML 列表（设置文件）
//
// 只有字符串形式按逗号拆分，YAML 列表中的每一项原样保留（如 "Doe, John" <j@example.com>）。
func getList(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case string:
		return parseList(raw)
	case []string:
		return compactList(raw)
	case []any:
		return compactList(lo.Map(raw, func(item any, _ int) string {
			return fmt.Sprint(item)
		}))
	default:
		return nil
	}
}

// compactList 去除列表项两端空白并丢弃空项，列表项本身不再按逗号拆分
func compactList(items []string) []string {
	return lo.Compact(lo.Map(items, func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}

// parseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env
//
// 文件不存在时静默跳过；已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
