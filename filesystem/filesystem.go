package filesystem

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrFileNotFound      = errors.New("filesystem: file not found")
	ErrDirectoryNotFound = errors.New("filesystem: directory not found")
	ErrInvalidPath       = errors.New("filesystem: invalid path")
)

type Filesystem interface {
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces path atomically: readers see the old or the new
	// content, never a partial write.
	WriteFile(path string, content []byte) error
	DeleteFile(path string) error

	FileExists(path string) (bool, error)
	FileMetaData(path string) (os.FileInfo, error)

	CreateDirectory(path string) error
	ListDirectory(path string) ([]os.FileInfo, error)

	IsFile(path string) (bool, error)
	IsDirectory(path string) (bool, error)
}

type localFileSystem struct {
	logger *slog.Logger
}

func NewLocalFileSystem(logger *slog.Logger) Filesystem {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &localFileSystem{logger: logger}
}

func (filesystem *localFileSystem) ReadFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return content, err
}

func (filesystem *localFileSystem) WriteFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := filesystem.CreateDirectory(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if removeErr := os.Remove(tmpName); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			filesystem.logger.Error("removing temporary file failed", "path", tmpName, "error", removeErr)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func (filesystem *localFileSystem) DeleteFile(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (filesystem *localFileSystem) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (filesystem *localFileSystem) FileMetaData(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return info, err
}

func (filesystem *localFileSystem) CreateDirectory(path string) error {
	isDir, err := filesystem.IsDirectory(path)
	if err != nil {
		return err
	}
	if isDir {
		return nil
	}

	return os.MkdirAll(path, 0o755)
}

// ListDirectory returns the entries of path, skipping dot files.
func (filesystem *localFileSystem) ListDirectory(path string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, path)
		}
		return nil, err
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// IsFile reports whether path is a regular file.
func (filesystem *localFileSystem) IsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (filesystem *localFileSystem) IsDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// SafeJoin joins a request path onto root. Any path containing ".." is
// refused, whether or not it would escape root.
func SafeJoin(root, requestPath string) (string, error) {
	if strings.Contains(requestPath, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, requestPath)
	}

	rel := strings.TrimLeft(requestPath, "/")
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

// FirstDirectory returns the first candidate that is an existing directory,
// or the first candidate when none exists.
func FirstDirectory(filesystem Filesystem, candidates ...string) string {
	for _, candidate := range candidates {
		if ok, err := filesystem.IsDirectory(candidate); err == nil && ok {
			return candidate
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}

// HasExtension compares the extension of name to ext, ignoring case.
func HasExtension(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}
