// Package storage archives generated reports, in S3 with a DynamoDB index
// or on local disk when no bucket is configured.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ignite/affiliate-ops/internal/config"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
)

// ErrReportNotFound is returned when a report key is unknown.
var ErrReportNotFound = errors.New("report not found")

// ReportRef points at one archived report.
type ReportRef struct {
	Key       string    `json:"key"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Storage is the report archive.
type Storage struct {
	localPath string
	mu        sync.RWMutex
	now       func() time.Time

	// AWS storage (optional)
	aws *AWSStorage

	// Index of locally archived reports, keyed by kind
	index map[string][]ReportRef
}

// New picks the archive backend from cfg. A report bucket selects S3 and
// DynamoDB; otherwise reports are written under LocalArchivePath.
func New(ctx context.Context, cfg config.AWSConfig) (*Storage, error) {
	s := &Storage{
		localPath: cfg.LocalArchivePath,
		now:       time.Now,
		index:     make(map[string][]ReportRef),
	}

	if cfg.ReportBucket != "" {
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.aws = NewAWSStorage(awsCfg, cfg.ReportTable, cfg.ReportBucket)
		return s, nil
	}

	if s.localPath == "" {
		s.localPath = "data/reports"
	}
	if err := os.MkdirAll(s.localPath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	if err := s.loadFromDisk(); err != nil {
		logger.Warn("storage: could not load existing reports", "error", err)
	}
	return s, nil
}

// NewWithAWS builds an archive over an existing AWS backend.
func NewWithAWS(a *AWSStorage) *Storage {
	return &Storage{aws: a, now: time.Now, index: make(map[string][]ReportRef)}
}

// Backend names the active backend for health output.
func (s *Storage) Backend() string {
	if s.aws != nil {
		return "aws"
	}
	return "local"
}

// SaveReport archives data under reports/{kind}/{yyyy/mm/dd}/{name}.json.
func (s *Storage) SaveReport(ctx context.Context, kind, name string, data interface{}) (ReportRef, error) {
	now := s.now().UTC()
	ref := ReportRef{
		Key:       fmt.Sprintf("reports/%s/%s/%s.json", kind, now.Format("2006/01/02"), safeName(name)),
		Kind:      kind,
		Name:      name,
		CreatedAt: now,
	}

	if s.aws != nil {
		if err := s.aws.put(ctx, ref, data); err != nil {
			return ReportRef{}, err
		}
		return ref, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveToFile(ref.Key, data); err != nil {
		return ReportRef{}, fmt.Errorf("saving report: %w", err)
	}
	s.index[kind] = append(s.index[kind], ref)
	return ref, nil
}

// ListReports returns the newest reports of a kind first. A non-positive
// limit returns all of them.
func (s *Storage) ListReports(ctx context.Context, kind string, limit int) ([]ReportRef, error) {
	if s.aws != nil {
		return s.aws.list(ctx, kind, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := append([]ReportRef(nil), s.index[kind]...)
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].CreatedAt.After(refs[j].CreatedAt) })
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// LoadReport decodes an archived report into dst.
func (s *Storage) LoadReport(ctx context.Context, key string, dst interface{}) error {
	if s.aws != nil {
		return s.aws.load(ctx, key, dst)
	}

	path, err := s.localFile(key)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrReportNotFound
	}
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}
	return json.Unmarshal(data, dst)
}

// saveToFile writes data as indented JSON at the key path.
func (s *Storage) saveToFile(key string, data interface{}) error {
	path, err := s.localFile(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (s *Storage) localFile(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid report key %q", key)
	}
	return filepath.Join(s.localPath, clean), nil
}

// loadFromDisk rebuilds the index from reports/{kind}/{yyyy}/{mm}/{dd}/{name}.json.
func (s *Storage) loadFromDisk() error {
	root := filepath.Join(s.localPath, "reports")
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(s.localPath, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 6 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		kind := parts[1]
		s.index[kind] = append(s.index[kind], ReportRef{
			Key:       filepath.ToSlash(rel),
			Kind:      kind,
			Name:      strings.TrimSuffix(parts[5], ".json"),
			CreatedAt: info.ModTime().UTC(),
		})
		return nil
	})
}

func safeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" {
		return "report"
	}
	return name
}
