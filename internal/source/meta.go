package source

import (
	"os"
	"path/filepath"
	"strings"
)

// Meta holds facts derived from a RawSource. It is computed once per
// detection and shared read-only by every detector.
type Meta struct {
	Kind Kind

	// IsMapping is true for exec mappings; HasExecKey reports the key itself.
	IsMapping  bool
	HasExecKey bool

	// IsCommand is true for plain argv sequences.
	IsCommand bool

	// IsScalar is true for single values. HasNewline marks scalars that are
	// raw protocol text rather than a path.
	IsScalar   bool
	HasNewline bool

	// File facts, populated only when the scalar names an existing path.
	IsFile       bool
	IsDir        bool
	Extension    string // lower-cased, including the leading dot
	IsExecutable bool   // any execute permission bit is set
	Size         int64
}

// ComputeMeta derives Meta from raw. The filesystem is only consulted for
// single-line scalars.
func ComputeMeta(raw RawSource) Meta {
	meta := Meta{Kind: raw.Kind()}
	switch raw.Kind() {
	case KindExec:
		meta.IsMapping = true
		meta.HasExecKey = true
	case KindCommand:
		meta.IsCommand = true
	case KindScalar:
		meta.IsScalar = true
		value := raw.Scalar()
		if strings.Contains(value, "\n") {
			meta.HasNewline = true
			return meta
		}
		if value == "" {
			return meta
		}
		info, err := os.Stat(value)
		if err != nil {
			return meta
		}
		meta.IsDir = info.IsDir()
		meta.IsFile = info.Mode().IsRegular()
		if meta.IsFile {
			meta.Extension = strings.ToLower(filepath.Ext(value))
			meta.IsExecutable = info.Mode().Perm()&0o111 != 0
			meta.Size = info.Size()
		}
	}
	return meta
}
