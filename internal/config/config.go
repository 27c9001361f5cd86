package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration loaded from deepscout.yaml.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Search   SearchConfig   `mapstructure:"search"`
	Docstore DocstoreConfig `mapstructure:"docstore"`
	Research ResearchConfig `mapstructure:"research"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port      int `mapstructure:"port"`
	AdminPort int `mapstructure:"admin_port"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	WebBaseURL         string        `mapstructure:"web_base_url"`
	AcademicBaseURL    string        `mapstructure:"academic_base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RatePerSecond      float64       `mapstructure:"rate_per_second"`
	Burst              int           `mapstructure:"burst"`
	WebMaxResults      int           `mapstructure:"web_max_results"`
	AcademicMaxResults int           `mapstructure:"academic_max_results"`
	ProfilesFile       string        `mapstructure:"profiles_file"`
}

type DocstoreConfig struct {
	Root string `mapstructure:"root"`
}

// EffortTier sets the research loop knobs for one effort level.
type EffortTier struct {
	InitialQueries int `mapstructure:"initial_queries"`
	MaxLoops       int `mapstructure:"max_loops"`
}

type ResearchConfig struct {
	Low            EffortTier `mapstructure:"low"`
	Medium         EffortTier `mapstructure:"medium"`
	High           EffortTier `mapstructure:"high"`
	MaxConcurrency int        `mapstructure:"max_concurrency"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Tier resolves an effort name to its tier, defaulting unknown values to
// medium.
func (r ResearchConfig) Tier(effort string) EffortTier {
	switch effort {
	case "low":
		return r.Low
	case "high":
		return r.High
	default:
		return r.Medium
	}
}

// Load reads the service configuration from CONFIG_PATH or
// config/deepscout.yaml. Missing file yields pure defaults; env vars with
// the DEEPSCOUT_ prefix override individual keys.
func Load() (*Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/deepscout.yaml"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(cfgPath)
	v.SetEnvPrefix("DEEPSCOUT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.admin_port", 2112)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "deepscout-tasks")

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("llm.base_url", "http://localhost:8000")
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("search.web_base_url", "http://localhost:8090")
	v.SetDefault("search.academic_base_url", "http://localhost:8091")
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.rate_per_second", 5.0)
	v.SetDefault("search.burst", 10)
	v.SetDefault("search.web_max_results", 5)
	v.SetDefault("search.academic_max_results", 3)
	v.SetDefault("search.profiles_file", "config/sources.yaml")

	v.SetDefault("docstore.root", "")

	v.SetDefault("research.low.initial_queries", 1)
	v.SetDefault("research.low.max_loops", 1)
	v.SetDefault("research.medium.initial_queries", 3)
	v.SetDefault("research.medium.max_loops", 3)
	v.SetDefault("research.high.initial_queries", 5)
	v.SetDefault("research.high.max_loops", 10)
	v.SetDefault("research.max_concurrency", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
