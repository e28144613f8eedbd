package fileaccess

import (
	"os"
	"path/filepath"
)

// FSAccess implements FileAccess on the local file system
type FSAccess struct{}

func (fs FSAccess) filePath(bucket string, path string) string {
	if bucket == "" {
		return path
	}
	return filepath.Join(bucket, path)
}

// ReadObject reads a whole file
func (fs FSAccess) ReadObject(bucket string, path string) ([]byte, error) {
	return os.ReadFile(fs.filePath(bucket, path))
}

// WriteObject writes a whole file, creating parent directories as needed
func (fs FSAccess) WriteObject(bucket string, path string, data []byte) error {
	fullPath := fs.filePath(bucket, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

func (fs FSAccess) IsNotFoundError(err error) bool {
	return os.IsNotExist(err)
}
