package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultExts           = "jpg,jpeg,png,gif,bmp,tif,tiff,pdf"
	DefaultQuiet          = 5 * time.Second
	DefaultScanInterval   = 2 * time.Second
	DefaultConcurrency    = 4
	DefaultBucket         = "goes-artifacts"
	DefaultMaxAttempts    = 5
	DefaultBackoffCap     = 30 * time.Second
	DefaultAttemptTimeout = 10 * time.Minute
	DefaultRegion         = "us-east-1"
)

var (
	ErrNoWatchRoot  = errors.New("watch root is required")
	ErrNoBucket     = errors.New("bucket is required")
	ErrNoExtensions = errors.New("extension allow-list is empty")
)

// S3 holds the object store connection settings. Endpoint is optional and
// switches the client to path-style addressing for MinIO-like stores.
type S3 struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	VerifySSL bool
}

type Config struct {
	WatchRoot         string
	Exts              []string
	Quiet             time.Duration
	ScanInterval      time.Duration
	Concurrency       int
	DeleteAfterUpload bool
	Bucket            string
	Prefix            string
	ExtraMetadata     map[string]string
	MaxAttempts       int
	BackoffCap        time.Duration
	AttemptTimeout    time.Duration
	S3                S3
}

func (c *Config) Validate() error {
	if c.WatchRoot == "" {
		return ErrNoWatchRoot
	}
	if !filepath.IsAbs(c.WatchRoot) {
		return fmt.Errorf("watch root must be an absolute path: %s", c.WatchRoot)
	}
	if c.Bucket == "" {
		return ErrNoBucket
	}
	if len(c.Exts) == 0 {
		return ErrNoExtensions
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.Quiet <= 0 {
		return fmt.Errorf("quiet window must be positive, got %s", c.Quiet)
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan interval must be positive, got %s", c.ScanInterval)
	}
	return nil
}

// ParseExts splits a comma-separated extension list, trimming whitespace,
// leading dots and case. Empty entries are dropped.
func ParseExts(csv string) []string {
	var exts []string
	for _, e := range strings.Split(csv, ",") {
		e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), ".")
		if e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}

// ParseExtraMetadata parses "key1=val1,key2=val2" pairs. Pairs without an
// '=' or with an empty key are ignored.
func ParseExtraMetadata(s string) map[string]string {
	md := map[string]string{}
	if s == "" {
		return md
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		md[k] = strings.TrimSpace(v)
	}
	return md
}
