// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Corphon/SceneSplitter/internal/config"
	"github.com/Corphon/SceneSplitter/internal/llm"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

// ErrLLMNotReady LLM 提供者尚未配置
var ErrLLMNotReady = errors.New("llm service not ready")

var providerDefaultModels = map[string]string{
	"anthropic":  "claude-3-5-haiku-latest",
	"openrouter": "google/gemma-3-27b-it:free",
}

const (
	llmCacheExpiration = 30 * time.Minute
	llmCacheMaxEntries = 1000
)

// LLMService 提供统一的大语言模型调用接口
type LLMService struct {
	providerMutex      sync.RWMutex
	provider           llm.Provider
	providerName       string
	cache              *LLMCache
	readyState         string
	activeDefaultModel string
	metrics            *utils.SplitMetrics
}

// LLMCache 结构化响应缓存，值为清洗后的 JSON 文本
type LLMCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type CacheEntry struct {
	Response  []byte
	CreatedAt time.Time
}

func newLLMCache() *LLMCache {
	return &LLMCache{
		cache:      make(map[string]*CacheEntry),
		expiration: llmCacheExpiration,
	}
}

// NewLLMService 根据当前配置创建LLM服务；未配置时返回未就绪的服务而不是错误
func NewLLMService(metrics *utils.SplitMetrics) *LLMService {
	service := &LLMService{
		cache:      newLLMCache(),
		readyState: "Uninitialized",
		metrics:    metrics,
	}
	if service.metrics == nil {
		service.metrics = utils.NewSplitMetrics(nil)
	}

	cfg := config.GetCurrentConfig()
	if cfg.LLMProvider == "" {
		service.readyState = "LLM provider not configured"
		return service
	}
	if cfg.LLMConfig["api_key"] == "" {
		service.readyState = "API key not configured"
		return service
	}

	if err := service.UpdateProvider(cfg.LLMProvider, cfg.LLMConfig); err != nil {
		utils.GetLogger().Warn("LLM提供者初始化失败", map[string]interface{}{
			"provider": cfg.LLMProvider,
			"err":      err.Error(),
		})
	}
	return service
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil
}

// GetReadyState 返回服务就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// GetProviderStatus 返回服务是否就绪以及可读描述
func (s *LLMService) GetProviderStatus() (bool, string) {
	if s == nil {
		return false, "LLM服务实例未初始化"
	}
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil, s.readyState
}

// GetProviderName 返回当前LLM提供商名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// UpdateProvider 切换提供者并清空缓存
func (s *LLMService) UpdateProvider(providerName string, cfg map[string]string) error {
	provider, err := llm.GetProvider(providerName, cfg)

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	if err != nil {
		s.provider = nil
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		return err
	}

	s.provider = provider
	s.providerName = providerName
	s.activeDefaultModel = extractDefaultModel(cfg)
	s.readyState = "Ready"
	s.cache = newLLMCache()
	return nil
}

// GetDefaultModel 获取当前使用的模型
func (s *LLMService) GetDefaultModel() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.activeDefaultModel != "" {
		return s.activeDefaultModel
	}
	if s.provider != nil {
		if models := s.provider.GetSupportedModels(); len(models) > 0 && strings.TrimSpace(models[0]) != "" {
			return strings.TrimSpace(models[0])
		}
	}
	return providerDefaultModels[s.providerName]
}

func extractDefaultModel(cfg map[string]string) string {
	if model := strings.TrimSpace(cfg["default_model"]); model != "" {
		return model
	}
	return strings.TrimSpace(cfg["model"])
}

// CompleteText 直接调用提供者并记录指标
func (s *LLMService) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.providerMutex.RLock()
	provider := s.provider
	providerName := s.providerName
	readyState := s.readyState
	s.providerMutex.RUnlock()

	if provider == nil {
		return nil, fmt.Errorf("%w: %s", ErrLLMNotReady, readyState)
	}
	if req.Model == "" {
		req.Model = s.GetDefaultModel()
	}

	start := time.Now()
	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLLMRequest(providerName, resp.TokensUsed, time.Since(start))
	return resp, nil
}

// CreateStructuredCompletion 请求 JSON 输出并解析到 outputSchema，结果按提示词缓存
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, prompt, systemPrompt string, outputSchema interface{}) error {
	model := s.GetDefaultModel()
	cacheKey := s.generateCacheKey(prompt, systemPrompt, model)

	cache := s.currentCache()
	if cached, ok := cache.get(cacheKey); ok {
		if err := json.Unmarshal(cached, outputSchema); err == nil {
			utils.GetLogger().Debug("LLM cache hit", map[string]interface{}{"cache_key_prefix": cacheKey[:8]})
			return nil
		}
	}

	structuredSystemPrompt := systemPrompt
	if systemPrompt != "" {
		structuredSystemPrompt += "\n\n"
	}
	structuredSystemPrompt += "Return your response in valid JSON format, following the provided output schema, without adding explanations or preambles."

	resp, err := s.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structuredSystemPrompt,
		Temperature:  0.3,
		Model:        model,
	})
	if err != nil {
		return err
	}

	text := cleanJSONString(resp.Text)
	if err := json.Unmarshal([]byte(text), outputSchema); err != nil {
		return fmt.Errorf("failed to parse AI response into structured data: %w\nAI return: %s", err, truncateText(text, 120))
	}

	cache.put(cacheKey, []byte(text))
	return nil
}

func (s *LLMService) currentCache() *LLMCache {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.cache
}

// generateCacheKey 生成缓存键
func (s *LLMService) generateCacheKey(prompt, systemPrompt, model string) string {
	hashInput := fmt.Sprintf("%s:::%s:::%s:::%s", prompt, systemPrompt, model, s.GetProviderName())
	return fmt.Sprintf("%x", md5.Sum([]byte(hashInput)))
}

func (c *LLMCache) get(key string) ([]byte, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists || time.Since(entry.CreatedAt) > c.expiration {
		return nil, false
	}
	return entry.Response, true
}

func (c *LLMCache) put(key string, response []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &CacheEntry{Response: response, CreatedAt: time.Now()}
	if len(c.cache) > llmCacheMaxEntries {
		c.cleanupOldest(llmCacheMaxEntries / 10)
	}
}

// cleanupOldest 清理最旧的缓存条目，调用方需持有写锁
func (c *LLMCache) cleanupOldest(count int) {
	type keyAge struct {
		key string
		age time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	for _, e := range entries[:min(count, len(entries))] {
		delete(c.cache, e.key)
	}
}

// Len 当前缓存条目数
func (c *LLMCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

// 字符串外出现的全角结构符号
var structuralPunctuationMap = map[rune]rune{
	'：': ':',
	'，': ',',
	'；': ';',
	'【': '[',
	'】': ']',
	'［': '[',
	'］': ']',
	'｛': '{',
	'｝': '}',
}

// 字符串外出现的非 ASCII 引号及其闭合符号
var quotePairs = map[rune]rune{
	'“': '”',
	'„': '”',
	'「': '」',
	'『': '』',
}

// normalizeJSONStructure 规范化字符串外的标点，字符串内容保持原样
func normalizeJSONStructure(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))
	inString := false
	escaped := false
	closing := '"'

	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == closing || r == '"':
				inString = false
				closing = '"'
				builder.WriteRune('"')
				continue
			}
			builder.WriteRune(r)
			continue
		}

		if replacement, ok := structuralPunctuationMap[r]; ok {
			r = replacement
		} else if c, ok := quotePairs[r]; ok {
			inString = true
			closing = c
			builder.WriteRune('"')
			continue
		} else if r == '"' {
			inString = true
			closing = '"'
		} else if r > unicode.MaxASCII && !unicode.IsSpace(r) {
			continue
		}
		builder.WriteRune(r)
	}

	return builder.String()
}

// cleanJSONString 从模型输出中截取第一个完整的 JSON 对象或数组
func cleanJSONString(s string) string {
	s = strings.TrimSpace(jsonNoiseReplacer.Replace(s))
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	s = normalizeJSONStructure(strings.TrimSpace(s[start:]))

	openByte, closeByte := byte('{'), byte('}')
	if s[0] == '[' {
		openByte, closeByte = '[', ']'
	}

	balance := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == openByte:
			balance++
		case !inString && c == closeByte:
			balance--
			if balance == 0 {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	if end := strings.LastIndexByte(s, closeByte); end != -1 {
		return strings.TrimSpace(s[:end+1])
	}
	return strings.TrimSpace(s)
}

// truncateText 按字符截断
func truncateText(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
