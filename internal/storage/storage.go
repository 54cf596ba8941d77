// Package storage provides object storage for request archives.
//
// The retention job writes each batch of expired captured requests here
// before deleting them from the database. Two implementations exist:
// - LocalStorage: File system storage for development
// - R2Storage: Cloudflare R2 (S3-compatible) storage for production
package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage is the write side of the archive. Archives are written once and
// read back out of band, never through the application.
type Storage interface {
	// Put stores data at the specified key with the given options.
	// Returns ErrKeyExists if the key already exists and overwrite is disabled.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType specifies the MIME type of the object.
	// Defaults to ContentTypeNDJSON.
	ContentType string

	// MaxSize specifies the maximum allowed size in bytes.
	// A value of 0 means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool
}

// ContentTypeNDJSON is the MIME type of archive batches.
const ContentTypeNDJSON = "application/x-ndjson"

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where archives are stored.
	// Example: "./archive" or "/var/lib/hookscope/archive"
	BasePath string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// Region is required by the AWS SDK. R2 accepts "auto".
	Region string
}

const (
	// ProviderLocal identifies the local filesystem storage provider.
	ProviderLocal = "local"

	// ProviderR2 identifies the Cloudflare R2 storage provider.
	ProviderR2 = "r2"
)

// =============================================================================
// Key Generation Helpers
// =============================================================================

// ArchiveKey generates the key for one archived batch of a job run.
// Format: archive/{job}/{yyyy}/{mm}/{dd}/{runstamp}-{batch}.ndjson
//
// Example: "archive/request_retention/2026/10/19/20261019T030000Z-0001.ndjson"
func ArchiveKey(jobName string, runStart time.Time, batch int) string {
	t := runStart.UTC()
	return fmt.Sprintf("archive/%s/%04d/%02d/%02d/%s-%04d.ndjson",
		jobName, t.Year(), int(t.Month()), t.Day(), t.Format("20060102T150405Z"), batch)
}
