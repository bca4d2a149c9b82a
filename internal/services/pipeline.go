package services

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"
)

// DocumentRole selects the sub-folder a file is stored under.
type DocumentRole string

const (
	RoleDescription DocumentRole = "job_description"
	RoleCandidate   DocumentRole = "candidates"
)

var unsafeTitleChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SanitizeTitle maps a free-form job title to a path segment.
func SanitizeTitle(title string) string {
	safe := strings.Trim(unsafeTitleChars.ReplaceAllString(title, "_"), "_")
	if safe == "" {
		return "untitled"
	}
	return safe
}

// BuildKey returns jobs/{safe title}/{role}/{millis}_{file name}.
func BuildKey(title string, role DocumentRole, ts time.Time, originalName string) string {
	return path.Join(
		"jobs",
		SanitizeTitle(title),
		string(role),
		fmt.Sprintf("%d_%s", ts.UnixMilli(), baseName(originalName)),
	)
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Trim(strings.ReplaceAll(name, "\x00", ""), " ")
	if name == "" || name == "." || name == ".." {
		return "document.pdf"
	}
	return name
}

// FileStem is the upload name without directories or extension.
func FileStem(name string) string {
	base := baseName(name)
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// UploadPipeline puts uploaded bytes under a deterministic key.
type UploadPipeline interface {
	Store(ctx context.Context, title string, role DocumentRole, data []byte, originalName string) (string, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

type uploadPipeline struct {
	storage StorageService
	now     func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewUploadPipeline(storage StorageService) UploadPipeline {
	return NewUploadPipelineWithClock(storage, time.Now)
}

func NewUploadPipelineWithClock(storage StorageService, now func() time.Time) UploadPipeline {
	return &uploadPipeline{storage: storage, now: now}
}

func (p *uploadPipeline) Store(ctx context.Context, title string, role DocumentRole, data []byte, originalName string) (string, error) {
	key := BuildKey(title, role, p.tick(), originalName)
	if err := p.storage.Put(ctx, key, data); err != nil {
		return "", &StorageError{Op: "put", Key: key, Cause: err}
	}
	return key, nil
}

func (p *uploadPipeline) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := p.storage.Delete(ctx, key); err != nil {
		return &StorageError{Op: "delete", Key: key, Cause: err}
	}
	return nil
}

func (p *uploadPipeline) URL(key string) string {
	return p.storage.URL(key)
}

// tick never hands out the same millisecond twice, so two files with the
// same name in one batch get distinct keys.
func (p *uploadPipeline) tick() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := p.now().Truncate(time.Millisecond)
	if !ts.After(p.last) {
		ts = p.last.Add(time.Millisecond)
	}
	p.last = ts
	return ts
}
