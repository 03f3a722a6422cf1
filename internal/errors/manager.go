// Package errors keeps a persistent log of failed submissions per document:
// remote translation failures, stale selections and translations that could
// not be anchored on the page.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"pdf-highlighter/internal/types"
)

// ErrorStage 错误阶段枚举
type ErrorStage string

const (
	StageDocument    ErrorStage = "document"    // 文档读取阶段
	StageSelection   ErrorStage = "selection"   // 选区阶段（过期或无文本）
	StageTranslation ErrorStage = "translation" // 远程翻译阶段
	StageAnchor      ErrorStage = "anchor"      // 锚定阶段（译文在页面上找不到）
)

// ErrorRecord 错误记录
type ErrorRecord struct {
	ID         string     `json:"id"`                   // 文档 ID
	FileName   string     `json:"file_name"`            // 文件名
	Page       int        `json:"page"`                 // 页码（从 0 开始）
	Stage      ErrorStage `json:"stage"`                // 出错阶段
	ErrorMsg   string     `json:"error_msg"`            // 错误信息
	Unanchored []string   `json:"unanchored,omitempty"` // 无法锚定的单词或句子
	Timestamp  time.Time  `json:"timestamp"`            // 错误发生时间
	CanRetry   bool       `json:"can_retry"`            // 是否可以重试
	RetryCount int        `json:"retry_count"`          // 重试次数
	LastRetry  time.Time  `json:"last_retry"`           // 最后重试时间
}

// ErrorManager 错误管理器
type ErrorManager struct {
	baseDir string
	mu      sync.RWMutex
	errors  map[string]*ErrorRecord // key: ID
}

// NewErrorManager 创建新的错误管理器
func NewErrorManager(baseDir string) (*ErrorManager, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".pdf-highlighter", "errors")
	}

	// 确保目录存在
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create errors directory: %w", err)
	}

	em := &ErrorManager{
		baseDir: baseDir,
		errors:  make(map[string]*ErrorRecord),
	}

	// 加载现有错误记录
	if err := em.load(); err != nil {
		return nil, err
	}

	return em, nil
}

// StageFor classifies err by its error code.
func StageFor(err error) ErrorStage {
	switch {
	case types.IsCode(err, types.ErrStaleSelection), types.IsCode(err, types.ErrInvalidInput):
		return StageSelection
	case types.IsCode(err, types.ErrDocument), types.IsCode(err, types.ErrFileNotFound):
		return StageDocument
	default:
		return StageTranslation
	}
}

// RecordError 记录错误；同一文档再次失败时累计重试次数
func (em *ErrorManager) RecordError(id, fileName string, page int, stage ErrorStage, errorMsg string) error {
	return em.record(&ErrorRecord{
		ID:       id,
		FileName: fileName,
		Page:     page,
		Stage:    stage,
		ErrorMsg: errorMsg,
		CanRetry: stage != StageDocument,
	})
}

// RecordUnanchored 记录译文无法锚定的条目
func (em *ErrorManager) RecordUnanchored(id, fileName string, page int, items []string) error {
	return em.record(&ErrorRecord{
		ID:         id,
		FileName:   fileName,
		Page:       page,
		Stage:      StageAnchor,
		ErrorMsg:   fmt.Sprintf("%d entries not found on page", len(items)),
		Unanchored: append([]string(nil), items...),
		CanRetry:   false,
	})
}

func (em *ErrorManager) record(record *ErrorRecord) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	record.Timestamp = time.Now()
	// 如果已存在，累计重试次数
	if existing, ok := em.errors[record.ID]; ok {
		record.RetryCount = existing.RetryCount + 1
		record.LastRetry = record.Timestamp
	}
	em.errors[record.ID] = record

	return em.save()
}

// RemoveError 移除错误记录（翻译成功后）
func (em *ErrorManager) RemoveError(id string) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if _, ok := em.errors[id]; !ok {
		return nil
	}
	delete(em.errors, id)
	return em.save()
}

// ListErrors 列出所有错误记录，最新的在前
func (em *ErrorManager) ListErrors() []*ErrorRecord {
	em.mu.RLock()
	defer em.mu.RUnlock()

	records := make([]*ErrorRecord, 0, len(em.errors))
	for _, record := range em.errors {
		// 创建副本以避免并发修改
		recordCopy := *record
		records = append(records, &recordCopy)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	return records
}

// GetError 获取特定错误记录
func (em *ErrorManager) GetError(id string) (*ErrorRecord, bool) {
	em.mu.RLock()
	defer em.mu.RUnlock()

	record, ok := em.errors[id]
	if !ok {
		return nil, false
	}

	// 返回副本
	recordCopy := *record
	return &recordCopy, true
}

// ClearAll 清除所有错误记录
func (em *ErrorManager) ClearAll() error {
	em.mu.Lock()
	defer em.mu.Unlock()

	em.errors = make(map[string]*ErrorRecord)
	return em.save()
}

// load 从文件加载错误记录
func (em *ErrorManager) load() error {
	filePath := filepath.Join(em.baseDir, "errors.json")

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在是正常的
			return nil
		}
		return fmt.Errorf("failed to read errors file: %w", err)
	}

	var records []*ErrorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal errors: %w", err)
	}

	for _, record := range records {
		em.errors[record.ID] = record
	}

	return nil
}

// save 保存错误记录到文件
func (em *ErrorManager) save() error {
	records := make([]*ErrorRecord, 0, len(em.errors))
	for _, record := range em.errors {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}

	filePath := filepath.Join(em.baseDir, "errors.json")
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write errors file: %w", err)
	}

	return nil
}

// GetStageDisplayName 获取阶段的显示名称
func GetStageDisplayName(stage ErrorStage) string {
	switch stage {
	case StageDocument:
		return "文档读取"
	case StageSelection:
		return "选区"
	case StageTranslation:
		return "翻译"
	case StageAnchor:
		return "锚定"
	default:
		return string(stage)
	}
}
