package filemanager

import (
	"os"
	"time"
)

// File describes basic file attributes.
type File struct {
	Path     string
	Size     int64 // bytes
	Mode     os.FileMode
	Modified time.Time
}

// FileOperations are the inbox file operations every backend supports.
// Paths are relative to the user's inbox.
type FileOperations interface {
	DeleteFile(path string) error
	// GetFileAttributes returns an error matching os.ErrNotExist when the
	// file is absent.
	GetFileAttributes(path string) (File, error)
}

// FileManager adds transfer and listing on top of FileOperations.
type FileManager interface {
	FileOperations
	UploadFile(localPath, remotePath string) (File, error)
	DownloadFile(remotePath, localPath string) (File, error)
	ListDirectory(path string) ([]File, error)
}
