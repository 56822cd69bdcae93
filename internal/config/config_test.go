// internal/config/config_test.go
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneSplitter/internal/models"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

func resetConfig(t *testing.T) {
	t.Helper()
	configMutex.Lock()
	currentConfig = nil
	configFile = ""
	configSecret = ""
	configMutex.Unlock()
	t.Cleanup(func() {
		configMutex.Lock()
		currentConfig = nil
		configMutex.Unlock()
	})
}

// TestLoadReadsEnvironment 测试从环境变量读取基础配置
func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG_MODE", "yes")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("LLM_PROVIDER", "openrouter")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.DebugMode)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, "openrouter", cfg.LLMProvider)
}

// TestLoadRejectsNegativeRateLimit 测试负数限流配置
func TestLoadRejectsNegativeRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "-1")
	_, err := Load()
	assert.Error(t, err)
}

// TestInitConfigCreatesFile 测试初始化时写入配置文件
func TestInitConfigCreatesFile(t *testing.T) {
	resetConfig(t)
	dir := t.TempDir()
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "env-key")

	require.NoError(t, InitConfig(dir))

	cfg := GetCurrentConfig()
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "env-key", cfg.LLMConfig["api_key"])
	assert.Equal(t, DefaultSplitDefaults(), cfg.Split)
	assert.FileExists(t, filepath.Join(dir, "config.json"))
}

// TestGetCurrentConfigReturnsCopy 测试返回的配置修改不影响单例
func TestGetCurrentConfigReturnsCopy(t *testing.T) {
	resetConfig(t)
	require.NoError(t, InitConfig(t.TempDir()))

	cfg := GetCurrentConfig()
	cfg.LLMConfig["api_key"] = "mutated"
	cfg.Port = "1"

	again := GetCurrentConfig()
	assert.NotEqual(t, "mutated", again.LLMConfig["api_key"])
	assert.NotEqual(t, "1", again.Port)
}

// TestUpdateLLMConfigPersists 测试 LLM 配置保存后可重新加载
func TestUpdateLLMConfigPersists(t *testing.T) {
	resetConfig(t)
	dir := t.TempDir()
	require.NoError(t, InitConfig(dir))

	require.NoError(t, UpdateLLMConfig("openrouter", map[string]string{
		"api_key":       "sk-test",
		"default_model": "qwen/qwen3-235b-a22b:free",
	}))

	resetConfig(t)
	require.NoError(t, InitConfig(dir))

	cfg := GetCurrentConfig()
	assert.Equal(t, "openrouter", cfg.LLMProvider)
	assert.Equal(t, "sk-test", cfg.LLMConfig["api_key"])
	assert.Equal(t, "qwen/qwen3-235b-a22b:free", cfg.LLMConfig["default_model"])
}

// TestSaveConfigEncryptsAPIKey 测试设置密钥后 API 密钥加密落盘
func TestSaveConfigEncryptsAPIKey(t *testing.T) {
	resetConfig(t)
	dir := t.TempDir()
	t.Setenv("CONFIG_SECRET", "passphrase")
	require.NoError(t, InitConfig(dir))
	require.NoError(t, UpdateLLMConfig("anthropic", map[string]string{"api_key": "sk-secret"}))

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	var saved AppConfig
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.NotEqual(t, "sk-secret", saved.LLMConfig["api_key"])
	assert.True(t, utils.IsSealedSecret(saved.LLMConfig["api_key"]))

	// 内存中仍为明文
	assert.Equal(t, "sk-secret", GetCurrentConfig().LLMConfig["api_key"])

	resetConfig(t)
	require.NoError(t, InitConfig(dir))
	assert.Equal(t, "sk-secret", GetCurrentConfig().LLMConfig["api_key"])
}

// TestUpdateSplitDefaults 测试默认分割参数的校验与保存
func TestUpdateSplitDefaults(t *testing.T) {
	resetConfig(t)
	dir := t.TempDir()
	require.NoError(t, InitConfig(dir))

	tests := []struct {
		name     string
		defaults SplitDefaults
		wantErr  bool
	}{
		{
			name: "有效参数",
			defaults: SplitDefaults{
				Strategy: models.StrategyNaturalBreaks, MinSceneDuration: 5,
				MaxSceneDuration: 60, TargetSceneCount: 3,
			},
		},
		{
			name: "最小值大于最大值",
			defaults: SplitDefaults{
				Strategy: models.StrategyHybrid, MinSceneDuration: 90,
				MaxSceneDuration: 60, TargetSceneCount: 3,
			},
			wantErr: true,
		},
		{
			name: "未知策略",
			defaults: SplitDefaults{
				Strategy: "random", MinSceneDuration: 5,
				MaxSceneDuration: 60, TargetSceneCount: 3,
			},
			wantErr: true,
		},
		{
			name: "目标数量为零",
			defaults: SplitDefaults{
				Strategy: models.StrategyHybrid, MinSceneDuration: 5,
				MaxSceneDuration: 60,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := UpdateSplitDefaults(tt.defaults)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.defaults, GetCurrentConfig().Split)
		})
	}

	resetConfig(t)
	require.NoError(t, InitConfig(dir))
	assert.Equal(t, models.StrategyNaturalBreaks, GetCurrentConfig().Split.Strategy)
}

// TestUpdateWithoutInit 测试未初始化时更新失败
func TestUpdateWithoutInit(t *testing.T) {
	resetConfig(t)
	assert.Error(t, UpdateLLMConfig("anthropic", nil))
	assert.Error(t, UpdateSplitDefaults(DefaultSplitDefaults()))
	assert.Error(t, SaveConfig())
}

// TestSplitDefaultsApply 测试默认值只填充未设置的字段
func TestSplitDefaultsApply(t *testing.T) {
	defaults := SplitDefaults{
		Strategy:            models.StrategyContentBased,
		UseAI:               false,
		FallbackToRuleBased: true,
		PreserveDialogue:    true,
		MinSceneDuration:    15,
		MaxSceneDuration:    90,
		TargetSceneCount:    4,
	}

	opts := defaults.Apply(models.SceneSplitOptions{
		Strategy:         models.StrategyNaturalBreaks,
		MaxSceneDuration: 200,
	})

	assert.Equal(t, models.StrategyNaturalBreaks, opts.Strategy)
	assert.False(t, opts.AIEnabled())
	assert.True(t, opts.FallbackEnabled())
	assert.True(t, opts.PreserveDialogue)
	assert.Equal(t, 15.0, opts.MinSceneDuration)
	assert.Equal(t, 200.0, opts.MaxSceneDuration)
	assert.Equal(t, 4, opts.TargetSceneCount)

	explicit := defaults.Apply(models.SceneSplitOptions{UseAI: models.Bool(true)})
	assert.True(t, explicit.AIEnabled())
}
