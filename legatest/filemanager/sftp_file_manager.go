package filemanager

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
)

// SFTPFileManager works on the inbox through an authenticated SFTP client.
type SFTPFileManager struct {
	Client *sftp.Client
}

func (s SFTPFileManager) UploadFile(localPath, remotePath string) (File, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return File{}, err
	}
	defer src.Close()

	dst, err := s.Client.Create(remotePath)
	if err != nil {
		return File{}, fmt.Errorf("could not create %s in inbox: %w", remotePath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return File{}, fmt.Errorf("could not upload %s: %w", localPath, err)
	}
	if err := dst.Close(); err != nil {
		return File{}, err
	}

	return s.GetFileAttributes(remotePath)
}

func (s SFTPFileManager) DownloadFile(remotePath, localPath string) (File, error) {
	src, err := s.Client.Open(remotePath)
	if err != nil {
		return File{}, err
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return File{}, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return File{}, fmt.Errorf("could not download %s: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return File{}, err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return File{}, err
	}
	return fileFromInfo(localPath, info), nil
}

func (s SFTPFileManager) DeleteFile(remotePath string) error {
	return s.Client.Remove(remotePath)
}

func (s SFTPFileManager) GetFileAttributes(remotePath string) (File, error) {
	info, err := s.Client.Stat(remotePath)
	if err != nil {
		return File{}, err
	}
	return fileFromInfo(remotePath, info), nil
}

func (s SFTPFileManager) ListDirectory(dir string) ([]File, error) {
	infos, err := s.Client.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(infos))
	for _, info := range infos {
		files = append(files, fileFromInfo(path.Join(dir, info.Name()), info))
	}
	return files, nil
}

func fileFromInfo(p string, info os.FileInfo) File {
	return File{
		Path:     p,
		Size:     info.Size(),
		Mode:     info.Mode(),
		Modified: info.ModTime(),
	}
}
