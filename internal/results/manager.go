// Package results stores the translations made for each document so that a
// later run on the same file picks them up again. Documents are identified by
// the MD5 hash of the file content.
package results

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"pdf-highlighter/internal/export"
)

// Status represents the state of the last translation of a document
type Status string

const (
	// StatusPending indicates nothing has been translated yet
	StatusPending Status = "pending"
	// StatusTranslated indicates the last submission succeeded
	StatusTranslated Status = "translated"
	// StatusError indicates the last submission failed
	StatusError Status = "error"
)

const (
	metadataFile = "metadata.json"
	snapshotFile = "snapshot.json"
)

// DocumentInfo represents metadata about a document with stored translations
type DocumentInfo struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	SourceMD5    string    `json:"source_md5"`
	Pages        int       `json:"pages"`
	Words        int       `json:"words"`
	Sentences    int       `json:"sentences"`
	UpdatedAt    time.Time `json:"updated_at"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// ResultManager manages per-document results stored in the user directory
type ResultManager struct {
	baseDir string // e.g. ~/.pdf-highlighter/results
}

// NewResultManager creates a new ResultManager with the specified base directory.
// If baseDir is empty, uses default location in user's home directory
func NewResultManager(baseDir string) (*ResultManager, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(homeDir, ".pdf-highlighter", "results")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &ResultManager{baseDir: baseDir}, nil
}

// GetBaseDir returns the base directory for results
func (m *ResultManager) GetBaseDir() string {
	return m.baseDir
}

// DocumentID derives the directory name of a document from its MD5 hash
func DocumentID(md5Hash string) string {
	if len(md5Hash) > 16 {
		md5Hash = md5Hash[:16]
	}
	return "md5_" + md5Hash
}

// GetDocumentDir returns the directory path for a document
func (m *ResultManager) GetDocumentDir(id string) string {
	return filepath.Join(m.baseDir, filepath.Base(id))
}

// SaveDocumentInfo saves document metadata, filling in the ID from the MD5
func (m *ResultManager) SaveDocumentInfo(info *DocumentInfo) error {
	if info.SourceMD5 == "" {
		return os.ErrInvalid
	}
	if info.ID == "" {
		info.ID = DocumentID(info.SourceMD5)
	}
	return m.writeJSON(info.ID, metadataFile, info)
}

// LoadDocumentInfo loads document metadata
func (m *ResultManager) LoadDocumentInfo(id string) (*DocumentInfo, error) {
	var info DocumentInfo
	if err := m.readJSON(id, metadataFile, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SaveSnapshot stores the translations of a document
func (m *ResultManager) SaveSnapshot(id string, snap *export.Snapshot) error {
	return m.writeJSON(id, snapshotFile, snap)
}

// LoadSnapshot loads the stored translations of a document. A document
// without a snapshot yields nil and no error.
func (m *ResultManager) LoadSnapshot(id string) (*export.Snapshot, error) {
	var snap export.Snapshot
	if err := m.readJSON(id, snapshotFile, &snap); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}

func (m *ResultManager) writeJSON(id, name string, v any) error {
	dir := m.GetDocumentDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0644)
}

func (m *ResultManager) readJSON(id, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(m.GetDocumentDir(id), name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ListDocuments returns all documents with stored results, most recently updated first
func (m *ResultManager) ListDocuments() ([]*DocumentInfo, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*DocumentInfo{}, nil
		}
		return nil, err
	}

	var docs []*DocumentInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := m.LoadDocumentInfo(entry.Name())
		if err != nil {
			continue // Skip directories without metadata
		}
		docs = append(docs, info)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})

	return docs, nil
}

// DeleteDocument deletes a document and all its stored results
func (m *ResultManager) DeleteDocument(id string) error {
	return os.RemoveAll(m.GetDocumentDir(id))
}

// DocumentExists checks if metadata for the document exists
func (m *ResultManager) DocumentExists(id string) bool {
	_, err := os.Stat(filepath.Join(m.GetDocumentDir(id), metadataFile))
	return err == nil
}

// FindByMD5 finds a document by its source file MD5 hash
func (m *ResultManager) FindByMD5(md5Hash string) (*DocumentInfo, error) {
	id := DocumentID(md5Hash)
	if !m.DocumentExists(id) {
		return nil, nil // Not found, but not an error
	}
	return m.LoadDocumentInfo(id)
}

// UpdateStatus records the outcome of the last submission on a document
func (m *ResultManager) UpdateStatus(id string, status Status, errorMsg string) error {
	info, err := m.LoadDocumentInfo(id)
	if err != nil {
		return err
	}
	info.Status = status
	info.ErrorMessage = errorMsg
	info.UpdatedAt = time.Now()
	return m.SaveDocumentInfo(info)
}

// CalculateFileMD5 calculates the MD5 hash of a file
func CalculateFileMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
