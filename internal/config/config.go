// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/Corphon/SceneSplitter/internal/models"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
	configSecret  string
)

// SplitDefaults 服务端的默认分割参数，请求中未给出的字段从这里补齐
type SplitDefaults struct {
	Strategy            models.SplitStrategy `json:"strategy"`
	UseAI               bool                 `json:"use_ai"`
	FallbackToRuleBased bool                 `json:"fallback_to_rule_based"`
	PreserveDialogue    bool                 `json:"preserve_dialogue"`
	MinSceneDuration    float64              `json:"min_scene_duration"`
	MaxSceneDuration    float64              `json:"max_scene_duration"`
	TargetSceneCount    int                  `json:"target_scene_count"`
	AITimeoutSeconds    int                  `json:"ai_timeout_seconds"`
	BatchConcurrency    int                  `json:"batch_concurrency"`
}

// DefaultSplitDefaults 内置默认值
func DefaultSplitDefaults() SplitDefaults {
	return SplitDefaults{
		Strategy:            models.StrategyHybrid,
		UseAI:               true,
		FallbackToRuleBased: true,
		MinSceneDuration:    models.DefaultMinSceneDuration,
		MaxSceneDuration:    models.DefaultMaxSceneDuration,
		TargetSceneCount:    models.DefaultTargetSceneCount,
		AITimeoutSeconds:    60,
		BatchConcurrency:    4,
	}
}

// Apply 用默认值补齐请求选项中未设置的字段
func (d SplitDefaults) Apply(opts models.SceneSplitOptions) models.SceneSplitOptions {
	if opts.Strategy == "" {
		opts.Strategy = d.Strategy
	}
	if opts.UseAI == nil {
		opts.UseAI = models.Bool(d.UseAI)
	}
	if opts.FallbackToRuleBased == nil {
		opts.FallbackToRuleBased = models.Bool(d.FallbackToRuleBased)
	}
	if !opts.PreserveDialogue {
		opts.PreserveDialogue = d.PreserveDialogue
	}
	if opts.MinSceneDuration == 0 {
		opts.MinSceneDuration = d.MinSceneDuration
	}
	if opts.MaxSceneDuration == 0 {
		opts.MaxSceneDuration = d.MaxSceneDuration
	}
	if opts.TargetSceneCount == 0 {
		opts.TargetSceneCount = d.TargetSceneCount
	}
	return opts
}

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port               string `json:"port"`
	DataDir            string `json:"data_dir"`
	LogDir             string `json:"log_dir"`
	DebugMode          bool   `json:"debug_mode"`
	LexiconFile        string `json:"lexicon_file,omitempty"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`

	// LLM相关配置
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`

	Split SplitDefaults `json:"split"`
}

// Config 从环境变量读取的基础配置
type Config struct {
	Port               string
	DataDir            string
	LogDir             string
	DebugMode          bool
	LexiconFile        string
	RateLimitPerMinute int
	LLMProvider        string
	LLMAPIKey          string
	LLMModel           string
	ConfigSecret       string
}

// Load 从环境变量加载配置（.env 文件可选）
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DataDir:            getEnvPath("DATA_DIR", "data"),
		LogDir:             getEnvPath("LOG_DIR", "logs"),
		DebugMode:          getEnvBool("DEBUG_MODE", false),
		LexiconFile:        getEnv("LEXICON_FILE", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		LLMProvider:        getEnv("LLM_PROVIDER", ""),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		LLMModel:           getEnv("LLM_MODEL", ""),
		ConfigSecret:       getEnv("CONFIG_SECRET", ""),
	}

	if cfg.RateLimitPerMinute < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE 不能为负数: %d", cfg.RateLimitPerMinute)
	}

	return cfg, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取路径类型的环境变量
func getEnvPath(key, defaultValue string) string {
	return filepath.Clean(getEnv(key, defaultValue))
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(getEnv(key, ""))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量，无法解析时使用默认值
func getEnvInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		utils.GetLogger().Warn("环境变量不是整数，使用默认值", map[string]interface{}{
			"key":     key,
			"value":   value,
			"default": defaultValue,
		})
		return defaultValue
	}
	return n
}

// InitConfig 初始化配置管理器：环境变量 + dataDir/config.json
func InitConfig(dataDir string) error {
	baseConfig, err := Load()
	if err != nil {
		return err
	}
	if dataDir == "" {
		dataDir = baseConfig.DataDir
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	configFile = filepath.Join(dataDir, "config.json")
	configSecret = baseConfig.ConfigSecret

	cfg := &AppConfig{
		LLMProvider: baseConfig.LLMProvider,
		LLMConfig:   map[string]string{},
		Split:       DefaultSplitDefaults(),
	}

	// 文件中保存的 LLM 与分割设置优先
	if data, err := os.ReadFile(configFile); err == nil {
		var saved AppConfig
		if err := json.Unmarshal(data, &saved); err != nil {
			return fmt.Errorf("解析配置文件失败: %w", err)
		}
		if saved.LLMProvider != "" {
			cfg.LLMProvider = saved.LLMProvider
		}
		if saved.LLMConfig != nil {
			cfg.LLMConfig = saved.LLMConfig
		}
		if saved.Split != (SplitDefaults{}) {
			cfg.Split = saved.Split
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 基础配置总是取自环境变量
	cfg.Port = baseConfig.Port
	cfg.DataDir = dataDir
	cfg.LogDir = baseConfig.LogDir
	cfg.DebugMode = baseConfig.DebugMode
	cfg.LexiconFile = baseConfig.LexiconFile
	cfg.RateLimitPerMinute = baseConfig.RateLimitPerMinute

	if apiKey, ok := cfg.LLMConfig["api_key"]; ok && apiKey != "" {
		plain, err := utils.DecryptSecret(apiKey, configSecret)
		if err != nil {
			return fmt.Errorf("解密API密钥失败: %w", err)
		}
		cfg.LLMConfig["api_key"] = plain
	}
	if cfg.LLMConfig["api_key"] == "" && baseConfig.LLMAPIKey != "" {
		cfg.LLMConfig["api_key"] = baseConfig.LLMAPIKey
	}
	if cfg.LLMConfig["default_model"] == "" && baseConfig.LLMModel != "" {
		cfg.LLMConfig["default_model"] = baseConfig.LLMModel
	}

	currentConfig = cfg
	return saveLocked()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, err := Load()
		if err != nil {
			baseConfig = &Config{Port: "8080", DataDir: "data", LogDir: "logs"}
		}
		return &AppConfig{
			Port:               baseConfig.Port,
			DataDir:            baseConfig.DataDir,
			LogDir:             baseConfig.LogDir,
			DebugMode:          baseConfig.DebugMode,
			LexiconFile:        baseConfig.LexiconFile,
			RateLimitPerMinute: baseConfig.RateLimitPerMinute,
			LLMProvider:        baseConfig.LLMProvider,
			LLMConfig:          map[string]string{"api_key": baseConfig.LLMAPIKey},
			Split:              DefaultSplitDefaults(),
		}
	}

	return currentConfig.clone()
}

func (c *AppConfig) clone() *AppConfig {
	cp := *c
	cp.LLMConfig = make(map[string]string, len(c.LLMConfig))
	for k, v := range c.LLMConfig {
		cp.LLMConfig[k] = v
	}
	return &cp
}

// UpdateLLMConfig 更新LLM配置并保存
func UpdateLLMConfig(provider string, llmConfig map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	cp := make(map[string]string, len(llmConfig))
	for k, v := range llmConfig {
		cp[k] = v
	}
	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = cp

	return saveLocked()
}

// UpdateSplitDefaults 更新默认分割参数并保存
func UpdateSplitDefaults(defaults SplitDefaults) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}
	if defaults.MinSceneDuration <= 0 || defaults.MaxSceneDuration <= 0 ||
		defaults.MinSceneDuration > defaults.MaxSceneDuration || defaults.TargetSceneCount <= 0 {
		return fmt.Errorf("无效的默认分割参数: min=%.1f max=%.1f target=%d",
			defaults.MinSceneDuration, defaults.MaxSceneDuration, defaults.TargetSceneCount)
	}
	if !defaults.Strategy.Valid() {
		return fmt.Errorf("未知的分割策略: %s", defaults.Strategy)
	}

	currentConfig.Split = defaults
	return saveLocked()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return saveLocked()
}

// saveLocked 调用方需持有 configMutex；设置了 CONFIG_SECRET 时 API 密钥加密保存
func saveLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	toSave := currentConfig.clone()
	if apiKey := toSave.LLMConfig["api_key"]; apiKey != "" && configSecret != "" {
		sealed, err := utils.EncryptSecret(apiKey, configSecret)
		if err != nil {
			return fmt.Errorf("加密API密钥失败: %w", err)
		}
		toSave.LLMConfig["api_key"] = sealed
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(toSave, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0600)
}
