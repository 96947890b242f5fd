package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marmos91/dittodocs/pkg/docid"
)

// DirectoryMime is the mime sentinel reported for directories.
const DirectoryMime = "inode/directory"

// Document is a projection of a filesystem entry.
//
// Documents are recomputed on every call and never cached: the filesystem
// entry is the only source of truth. ParentID is derived from ID.
type Document struct {
	ID        docid.ID  `json:"id"`
	Name      string    `json:"name"`
	Mime      string    `json:"mime"`
	ParentID  docid.ID  `json:"parent_id"`
	Size      int64     `json:"size"`
	Data      *FileData `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identifier implements docid.Identifier so a document can be passed
// wherever an identifier-like value is accepted.
func (d *Document) Identifier() docid.ID {
	return d.ID
}

// IsDirectory reports whether the document projects a directory.
func (d *Document) IsDirectory() bool {
	return d.Mime == DirectoryMime
}

// FileData is a cursor over a file's content.
//
// It holds only the absolute path; every read opens a fresh handle, so a
// FileData is never tied to an open descriptor.
type FileData struct {
	path string
}

// NewFileData returns a content cursor for the file at path.
func NewFileData(path string) *FileData {
	return &FileData{path: path}
}

// Path returns the absolute path of the underlying file.
func (f *FileData) Path() string {
	return f.path
}

// Open returns a reader over the content. The caller must close it.
func (f *FileData) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Bytes reads the whole content.
func (f *FileData) Bytes() ([]byte, error) {
	return os.ReadFile(f.path)
}

// CopyTo writes the content into dst, truncating it.
func (f *FileData) CopyTo(dst string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	return WriteFile(dst, src)
}

// Equal compares the content with another cursor byte by byte.
func (f *FileData) Equal(other *FileData) (bool, error) {
	a, err := f.Bytes()
	if err != nil {
		return false, err
	}
	b, err := other.Bytes()
	if err != nil {
		return false, err
	}
	return bytes.Equal(a, b), nil
}

// Reader exposes the cursor as an io.Reader that opens the file on first
// read, so a FileData can be passed directly as create/update content.
func (f *FileData) Reader() io.Reader {
	return &lazyReader{data: f}
}

type lazyReader struct {
	data *FileData
	file *os.File
	err  error
}

func (r *lazyReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.file == nil {
		r.file, r.err = os.Open(r.data.path)
		if r.err != nil {
			return 0, r.err
		}
	}
	n, err := r.file.Read(p)
	if err == io.EOF {
		_ = r.file.Close()
		r.err = io.EOF
	}
	return n, err
}

// WriteFile streams src into path, creating or truncating it.
func WriteFile(path string, src io.Reader) error {
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to write content: %w", err)
	}

	return dst.Close()
}
