// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// FileReader is an io.Reader that handles opening a file for reading automatically.
type FileReader struct {
	path string

	openOnce sync.Once
	openErr  error
	fs       fs.FS
	file     io.ReadCloser
}

// NewFileReader configures a FileReader.
func NewFileReader(fs fs.FS, path string) *FileReader {
	return &FileReader{
		path: path,
		fs:   fs,
	}
}

// Read implements the [io.Reader] interface.
func (r *FileReader) Read(b []byte) (int, error) {
	r.openOnce.Do(func() {
		r.file, r.openErr = r.fs.Open(r.path)
	})
	if r.openErr != nil {
		return 0, r.openErr
	}
	return r.file.Read(b)
}

// Close implements the [io.Closer] interface.
func (r *FileReader) Close() error {
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil
	return err
}

// UnsupportedFormatError is returned by FromFile for a file extension
// which no Source can decode.
type UnsupportedFormatError struct {
	Path string
}

// Error implements the [builtin.error] interface.
func (e UnsupportedFormatError) Error() string {
	return "unsupported config file format: " + e.Path
}

// FromFile returns a Source for the file at p, decoded according to its
// extension: .yaml, .yml, .json or .toml.
func FromFile(fsys fs.FS, p string) Source {
	r := NewFileReader(fsys, p)
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return FromYaml(r)
	case ".json":
		return FromJson(r)
	case ".toml":
		return FromToml(r)
	default:
		return SourceFunc(func(Store) error {
			return UnsupportedFormatError{Path: p}
		})
	}
}
