package filemanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	cm "github.com/steelcutops/legatest/legatest/commandmanager"
)

// DockerFileManager reaches a user's inbox from inside the inbox container
// with `docker exec`, so it works without an SFTP session.
type DockerFileManager struct {
	CommandManager cm.CommandManager
	Container      string
	// InboxRoot is the directory holding per-user inboxes inside the container.
	InboxRoot string
	User      string
}

func (d DockerFileManager) inboxPath(p string) string {
	return path.Join(d.InboxRoot, d.User, p)
}

func (d DockerFileManager) exec(args ...string) (cm.CommandResult, error) {
	config := cm.CommandConfig{
		Command: "docker",
		Args:    append([]string{"exec", d.Container}, args...),
	}
	return d.CommandManager.Run(context.TODO(), config)
}

func (d DockerFileManager) DeleteFile(p string) error {
	result, err := d.exec("rm", d.inboxPath(p))
	return handleCommandResult(result, err)
}

func (d DockerFileManager) GetFileAttributes(p string) (File, error) {
	full := d.inboxPath(p)
	result, err := d.exec("stat", "-c", "%s %Y %a", full)
	if err := handleCommandResult(result, err); err != nil {
		return File{}, err
	}

	// size, modification time, mode
	parts := strings.Fields(result.STDOUT)
	if len(parts) != 3 {
		return File{}, fmt.Errorf("unexpected stat output format: %s", result.STDOUT)
	}

	size, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return File{}, fmt.Errorf("error parsing size: %v", err)
	}
	modifiedSeconds, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return File{}, fmt.Errorf("error parsing modification time: %v", err)
	}
	modeInt, err := strconv.ParseInt(parts[2], 8, 64)
	if err != nil {
		return File{}, fmt.Errorf("error parsing mode: %v", err)
	}

	return File{
		Path:     full,
		Size:     size,
		Mode:     os.FileMode(modeInt),
		Modified: time.Unix(modifiedSeconds, 0),
	}, nil
}

func handleCommandResult(result cm.CommandResult, err error) error {
	if err != nil {
		return err
	}
	if result.ExitCode == 0 {
		return nil
	}
	if strings.Contains(result.STDERR, "No such file or directory") {
		return fmt.Errorf("%s: %w", result.Command, os.ErrNotExist)
	}
	return errors.New(strings.TrimSpace(result.STDERR))
}
