// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package source enumerates and reads brief PDFs from a document tree.
//
// A tree is laid out as <year>-briefs/<case folder>/<file>.pdf and may live
// on the local filesystem or under a prefix of an S3 bucket. Paths returned
// by a Source are slash separated and relative to the tree root, so they can
// be handed to metadata.Parse unchanged.
package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/poiesic/brieflink/caseid"
	"github.com/poiesic/brieflink/metadata"
)

var (
	ErrUnknownType    = errors.New("unknown source type")
	ErrBucketRequired = errors.New("S3 bucket is required")
	ErrRootRequired   = errors.New("source root is required")
)

// File is one document in a tree.
type File struct {
	Path string // tree-relative, slash separated
	Size int64
}

// Source lists and reads documents.
type Source interface {
	// List returns matching files ordered by path.
	List(ctx context.Context) ([]File, error)
	// Read returns the bytes of the file at a path returned by List.
	Read(ctx context.Context, path string) ([]byte, error)
	// Location describes the tree for logs and SourcePath values.
	Location(path string) string
}

// Type names a source backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Type         Type
	LocalPath    string
	S3Bucket     string
	S3Prefix     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// New creates a Source for cfg.
func New(ctx context.Context, cfg Config, opts ...Option) (Source, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocal(cfg.LocalPath, opts...)
	case TypeS3:
		return NewS3(ctx, cfg, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, cfg.Type)
	}
}

// Filter restricts which files a Source returns. Empty fields match everything.
type Filter struct {
	Years       []int
	CaseFolders []string
}

// Match reports whether the tree-relative path passes the filter.
// Case folders compare by normalized docket number.
func (f Filter) Match(p string) bool {
	if !strings.EqualFold(path.Ext(p), ".pdf") {
		return false
	}
	if len(f.Years) == 0 && len(f.CaseFolders) == 0 {
		return true
	}
	rec := metadata.Parse(p)
	if len(f.Years) > 0 && !slices.Contains(f.Years, rec.Year) {
		return false
	}
	if len(f.CaseFolders) > 0 {
		for _, folder := range f.CaseFolders {
			if folder == rec.FolderCaseID || caseid.Equivalent(folder, rec.FolderCaseID) {
				return true
			}
		}
		return false
	}
	return true
}

// Option configures a Source.
type Option func(*options)

type options struct {
	filter Filter
}

// WithYears keeps only files under the given <year>-briefs folders.
func WithYears(years ...int) Option {
	return func(o *options) {
		o.filter.Years = append(o.filter.Years, years...)
	}
}

// WithCaseFolders keeps only files under the given case folders.
func WithCaseFolders(folders ...string) Option {
	return func(o *options) {
		for _, f := range folders {
			if f = strings.TrimSpace(f); f != "" {
				o.filter.CaseFolders = append(o.filter.CaseFolders, f)
			}
		}
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
