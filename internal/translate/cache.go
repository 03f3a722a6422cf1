package translate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pdf-highlighter/internal/types"
)

// CacheEntry 缓存条目
type CacheEntry struct {
	Hash      string    `json:"hash"`
	Kind      string    `json:"kind"`
	Input     string    `json:"input"`    // 归一化后的分块文本
	Response  string    `json:"response"` // 远程服务的原始返回
	CreatedAt time.Time `json:"created_at"`
}

// CacheFile 缓存文件格式
type CacheFile struct {
	Version string       `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

// Cache 缓存远程服务对分块的原始返回，避免重复请求
type Cache struct {
	path    string
	entries map[string]CacheEntry // hash -> entry
	mu      sync.RWMutex
}

// NewCache 创建缓存；path 为空时只在内存中保存
func NewCache(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]CacheEntry),
	}
}

// Key hashes everything that influences a response.
func Key(kind Kind, model, prompt, input string) string {
	h := sha256.New()
	for _, part := range []string{kind.String(), model, prompt, input} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get 获取缓存的返回
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	return e.Response, true
}

// Set 写入缓存
func (c *Cache) Set(key string, kind Kind, input, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = CacheEntry{
		Hash:      key,
		Kind:      kind.String(),
		Input:     input,
		Response:  response,
		CreatedAt: time.Now(),
	}
}

// Load 从文件加载缓存，文件不存在时保持为空
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return types.NewAppError(types.ErrCache, "failed to read cache file", err)
	}

	var file CacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return types.NewAppError(types.ErrCache, "failed to parse cache file", err)
	}
	c.entries = make(map[string]CacheEntry, len(file.Entries))
	for _, e := range file.Entries {
		c.entries[e.Hash] = e
	}
	return nil
}

// Save 保存缓存到文件
func (c *Cache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.path == "" {
		return nil
	}
	file := CacheFile{Version: "1.0", Entries: make([]CacheEntry, 0, len(c.entries))}
	for _, e := range c.entries {
		file.Entries = append(file.Entries, e)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrCache, "failed to marshal cache", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return types.NewAppError(types.ErrCache, "failed to create cache directory", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return types.NewAppError(types.ErrCache, "failed to write cache file", err)
	}
	return nil
}

// Size 返回条目数量
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear 清空缓存
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
}

// Path 返回缓存文件路径
func (c *Cache) Path() string {
	return c.path
}
