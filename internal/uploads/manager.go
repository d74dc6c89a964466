package uploads

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/campusflow/campusflow/pkg/errors"
)

// PublicPrefix is the URL path under which stored files are served.
const PublicPrefix = "/uploads"

// StoredFile describes a file placed under the uploads directory.
type StoredFile struct {
	URL      string
	Filename string
	Size     int64
}

// Manager owns the local uploads directory: submissions uploaded through the
// API and attachment copies pulled from external sources.
type Manager struct {
	dir string
}

// NewManager ensures the uploads directory exists and returns a manager for it.
func NewManager(dir string) (*Manager, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("uploads: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the managed directory, for static file serving.
func (m *Manager) Dir() string {
	return m.dir
}

// SaveSubmission stores an uploaded submission under a generated name.
func (m *Manager) SaveSubmission(originalName string, data []byte) (StoredFile, error) {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".pdf"
	}
	return m.save(fmt.Sprintf("submission-%d-%s%s", time.Now().UnixMilli(), shortID(), ext), data)
}

// SaveAttachment stores a copy of a remote attachment under a generated name.
// The extension is taken from the remote reference's path, defaulting to .bin.
func (m *Manager) SaveAttachment(remoteRef string, data []byte) (StoredFile, error) {
	ext := filepath.Ext(refPath(remoteRef))
	if ext == "" {
		ext = ".bin"
	}
	return m.save(fmt.Sprintf("ext-%d-%s%s", time.Now().UnixMilli(), shortID(), ext), data)
}

// refPath strips query and fragment from a remote reference so the extension
// comes from the path alone.
func refPath(remoteRef string) string {
	if u, err := url.Parse(remoteRef); err == nil && u.Path != "" {
		return u.Path
	}
	return remoteRef
}

func (m *Manager) save(filename string, data []byte) (StoredFile, error) {
	path := filepath.Join(m.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return StoredFile{}, fmt.Errorf("uploads: write %s: %w", filename, err)
	}
	return StoredFile{
		URL:      PublicPrefix + "/" + filename,
		Filename: filename,
		Size:     int64(len(data)),
	}, nil
}

// Remove deletes a stored file by name. Names containing path separators or
// traversal sequences are rejected.
func (m *Manager) Remove(filename string) error {
	if !ValidFilename(filename) {
		return apperrors.NewValidation("invalid filename")
	}

	path := filepath.Join(m.dir, filename)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("uploads: stat %s: %w", filename, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("uploads: remove %s: %w", filename, err)
	}
	return nil
}

// ValidFilename reports whether filename is a bare name safe to resolve
// inside the uploads directory.
func ValidFilename(filename string) bool {
	if filename == "" {
		return false
	}
	return !strings.ContainsAny(filename, "/\\") && !strings.Contains(filename, "..")
}

func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
