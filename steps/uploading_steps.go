package steps

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/sirupsen/logrus"
	"github.com/steelcutops/legatest/legatest/datamanager"
)

func initUploadingSteps(ctx *godog.ScenarioContext, s *legaSteps) {
	ctx.Step(`^I have a file to upload$`, s.iHaveAFileToUpload)
	ctx.Step(`^I upload encrypted file to the LocalEGA inbox via SFTP$`, s.iUploadEncryptedFileToTheLocalEGAInbox)
	ctx.Step(`^the file is uploaded successfully$`, s.theFileIsUploadedSuccessfully)
	ctx.Step(`^the file is not in the inbox$`, s.theFileIsNotInTheInbox)
}

func (s *legaSteps) iHaveAFileToUpload() error {
	dir, err := os.MkdirTemp("", "legatest-data-")
	if err != nil {
		return err
	}
	s.sc.DataFolder = dir

	raw, err := datamanager.CreateRawFile(dir, "data.raw", s.Config.FileSize)
	if err != nil {
		return err
	}
	enc := raw + ".enc"
	if err := datamanager.EncryptFile(raw, enc, []byte(s.Config.Passphrase)); err != nil {
		return err
	}
	s.sc.RawFile = raw
	s.sc.EncryptedFile = enc

	s.sc.HashingAlgorithm = s.Config.HashingAlgorithm
	if s.sc.RawChecksum, err = datamanager.Checksum(raw, s.sc.HashingAlgorithm); err != nil {
		return err
	}
	if s.sc.EncChecksum, err = datamanager.Checksum(enc, s.sc.HashingAlgorithm); err != nil {
		return err
	}

	s.Log.WithFields(logrus.Fields{
		"raw":         raw,
		"rawChecksum": s.sc.RawChecksum,
		"encChecksum": s.sc.EncChecksum,
		"hashing":     s.sc.HashingAlgorithm,
	}).Debug("Prepared file for upload")
	return nil
}

func (s *legaSteps) iUploadEncryptedFileToTheLocalEGAInbox() error {
	if s.sc.EncryptedFile == "" {
		return errors.New("no file was prepared in this scenario")
	}
	files, err := s.sftpFiles()
	if err != nil {
		return err
	}

	f, err := files.UploadFile(s.sc.EncryptedFile, filepath.Base(s.sc.EncryptedFile))
	if err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"path": f.Path, "size": f.Size}).Info("Uploaded file to inbox")
	return nil
}

func (s *legaSteps) theFileIsUploadedSuccessfully() error {
	files, err := s.inboxFiles()
	if err != nil {
		return err
	}

	remote, err := files.GetFileAttributes(filepath.Base(s.sc.EncryptedFile))
	if err != nil {
		return fmt.Errorf("uploaded file not found in inbox: %w", err)
	}
	local, err := os.Stat(s.sc.EncryptedFile)
	if err != nil {
		return err
	}
	if remote.Size != local.Size() {
		return fmt.Errorf("inbox holds %d bytes, uploaded %d", remote.Size, local.Size())
	}

	if !s.sc.IsConnected() {
		return nil
	}
	return s.verifyInboxContent()
}

// verifyInboxContent fetches the uploaded file back over the scenario's
// session and checks that it decrypts to the original plaintext.
func (s *legaSteps) verifyInboxContent() error {
	files, err := s.sftpFiles()
	if err != nil {
		return err
	}

	name := filepath.Base(s.sc.EncryptedFile)
	listing, err := files.ListDirectory(".")
	if err != nil {
		return err
	}
	listed := false
	for _, f := range listing {
		if path.Base(f.Path) == name {
			listed = true
			break
		}
	}
	if !listed {
		return fmt.Errorf("%s is not listed in the inbox", name)
	}

	downloaded := filepath.Join(s.sc.DataFolder, "inbox-"+name)
	if _, err := files.DownloadFile(name, downloaded); err != nil {
		return err
	}
	plain, err := datamanager.DecryptFile(downloaded, []byte(s.Config.Passphrase))
	if err != nil {
		return fmt.Errorf("could not decrypt inbox copy: %w", err)
	}
	decrypted := filepath.Join(s.sc.DataFolder, "inbox-"+filepath.Base(s.sc.RawFile))
	if err := os.WriteFile(decrypted, plain, 0600); err != nil {
		return err
	}

	checksum, err := datamanager.Checksum(decrypted, s.sc.HashingAlgorithm)
	if err != nil {
		return err
	}
	if checksum != s.sc.RawChecksum {
		return fmt.Errorf("inbox copy decrypts to %s, expected %s", checksum, s.sc.RawChecksum)
	}
	return nil
}

func (s *legaSteps) theFileIsNotInTheInbox() error {
	files, err := s.inboxFiles()
	if err != nil {
		return err
	}

	_, err = files.GetFileAttributes(filepath.Base(s.sc.EncryptedFile))
	switch {
	case err == nil:
		return fmt.Errorf("%s is still in the inbox", filepath.Base(s.sc.EncryptedFile))
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}
