package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Render    RenderConfig    `mapstructure:"render"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	BodyLimit int64      `mapstructure:"body_limit"` // 请求体上限（字节），页面 HTML 可能较大
	CORS      CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// AuthConfig 会话令牌配置
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RenderConfig 冲突高亮配置
type RenderConfig struct {
	ConflictColor string `mapstructure:"conflict_color"`
	ClearColor    string `mapstructure:"clear_color"`
	TooltipPrefix string `mapstructure:"tooltip_prefix"`
	DedupeNames   bool   `mapstructure:"dedupe_names"` // 提示中同名课程只列一次
}

// CalendarConfig 学期日历配置（仅用于 ICS 导出）
type CalendarConfig struct {
	TermStart   string   `mapstructure:"term_start"` // YYYY-MM-DD，第 1 周周一
	TermWeeks   int      `mapstructure:"term_weeks"`
	Timezone    string   `mapstructure:"timezone"`
	PeriodTimes []string `mapstructure:"period_times"` // 第 i+1 节："08:00-08:50"
}

// RateLimitConfig 页面分析接口限流
type RateLimitConfig struct {
	AnalyzeLimit  int           `mapstructure:"analyze_limit"`
	AnalyzeWindow time.Duration `mapstructure:"analyze_window"`
}

// DefaultPeriodTimes 北大常用作息（第 1-12 节）
var DefaultPeriodTimes = []string{
	"08:00-08:50", "09:00-09:50", "10:10-11:00", "11:10-12:00",
	"13:00-13:50", "14:00-14:50", "15:10-16:00", "16:10-17:00",
	"17:10-18:00", "18:40-19:30", "19:40-20:30", "20:40-21:30",
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", 4<<20)
	v.SetDefault("server.cors.allow_origins", []string{"https://elective.pku.edu.cn"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "elective_helper")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_ttl", "24h")

	v.SetDefault("auth.session_ttl", "720h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("render.conflict_color", "#ffcccc")
	v.SetDefault("render.clear_color", "#ccffcc")
	v.SetDefault("render.tooltip_prefix", "与以下课程冲突: ")
	v.SetDefault("render.dedupe_names", false)

	v.SetDefault("calendar.term_start", "")
	v.SetDefault("calendar.term_weeks", 16)
	v.SetDefault("calendar.timezone", "Asia/Shanghai")
	v.SetDefault("calendar.period_times", DefaultPeriodTimes)

	v.SetDefault("rate_limit.analyze_limit", 60)
	v.SetDefault("rate_limit.analyze_window", "1m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ELECTIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Calendar.TermStart != "" {
		if _, err := time.Parse("2006-01-02", c.Calendar.TermStart); err != nil {
			return fmt.Errorf("配置校验失败: calendar.term_start 格式应为 YYYY-MM-DD: %w", err)
		}
	}
	for i, pt := range c.Calendar.PeriodTimes {
		if _, _, err := ParsePeriodTime(pt); err != nil {
			return fmt.Errorf("配置校验失败: calendar.period_times[%d]: %w", i, err)
		}
	}
	return nil
}

// ParsePeriodTime 解析 "08:00-08:50" 为起止时刻（相对当日零点）
func ParsePeriodTime(s string) (start, end time.Duration, err error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("节次时间 %q 缺少 '-'", s)
	}
	if start, err = parseClock(from); err != nil {
		return 0, 0, err
	}
	if end, err = parseClock(to); err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("节次时间 %q 结束早于开始", s)
	}
	return start, end, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("无效的时刻 %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
