// Package inboxstub runs an in-process SSH/SFTP inbox that authorizes
// users against Central EGA identity fixtures. It stands in for the
// LocalEGA inbox container when no deployment is available.
package inboxstub

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"github.com/steelcutops/legatest/legatest/fixturemanager"
	"golang.org/x/crypto/ssh"
)

// IdentityReader looks up the record Central EGA holds for a user.
type IdentityReader interface {
	ReadIdentity(user string) (fixturemanager.User, error)
}

type Server struct {
	// Root holds one inbox directory per user.
	Root string

	identities IdentityReader
	config     *ssh.ServerConfig
	log        logrus.FieldLogger

	listener net.Listener
	wg       sync.WaitGroup

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool
}

func New(root string, identities IdentityReader, log logrus.FieldLogger) (*Server, error) {
	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("could not generate host key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(hostKey)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Root:       root,
		identities: identities,
		log:        log,
		conns:      make(map[net.Conn]struct{}),
	}
	s.config = &ssh.ServerConfig{PublicKeyCallback: s.authorize}
	s.config.AddHostKey(signer)
	return s, nil
}

// Start listens on addr ("localhost:0" picks a free port) and serves in the
// background until Close.
func (s *Server) Start(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.log.WithField("address", l.Addr().String()).Info("Inbox stub listening")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// InboxPath returns the local directory backing user's inbox.
func (s *Server) InboxPath(user string) string {
	return filepath.Join(s.Root, user)
}

// DropConnections closes every live client connection without stopping
// the listener.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	err := s.listener.Close()
	s.DropConnections()
	s.wg.Wait()
	return err
}

func (s *Server) authorize(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	u, err := s.identities.ReadIdentity(meta.User())
	if err != nil {
		return nil, fmt.Errorf("unknown user %q", meta.User())
	}

	authorized, _, _, _, err := ssh.ParseAuthorizedKey([]byte(u.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("unusable public key for %q: %w", meta.User(), err)
	}
	if !bytes.Equal(authorized.Marshal(), key.Marshal()) {
		return nil, fmt.Errorf("public key rejected for %q", meta.User())
	}

	return &ssh.Permissions{
		Extensions: map[string]string{"uid": strconv.Itoa(u.UID)},
	}, nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.WithError(err).Error("Accept failed")
			}
			return
		}

		if !s.track(conn) {
			conn.Close()
			return
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) handleConn(nConn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(nConn)
	defer nConn.Close()

	conn, chans, reqs, err := ssh.NewServerConn(nConn, s.config)
	if err != nil {
		s.log.WithError(err).Debug("Handshake failed")
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	log := s.log.WithField("user", conn.User())
	inbox := s.InboxPath(conn.User())
	if err := os.MkdirAll(inbox, 0755); err != nil {
		log.WithError(err).Error("Could not create inbox")
		return
	}
	log.Debug("User logged in")

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			log.WithError(err).Warn("Could not accept channel")
			continue
		}
		s.wg.Add(1)
		go s.handleSession(channel, requests, inbox, log)
	}
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request, inbox string, log logrus.FieldLogger) {
	defer s.wg.Done()
	defer channel.Close()

	for req := range requests {
		ok := req.Type == "subsystem" && isSFTPSubsystem(req.Payload)
		req.Reply(ok, nil)
		if !ok {
			continue
		}
		go ssh.DiscardRequests(requests)

		server, err := sftp.NewServer(channel, sftp.WithServerWorkingDirectory(inbox))
		if err != nil {
			log.WithError(err).Error("Could not start SFTP server")
			return
		}
		if err := server.Serve(); err != nil && !errors.Is(err, io.EOF) {
			log.WithError(err).Debug("SFTP session ended")
		}
		server.Close()
		return
	}
}

// The subsystem request payload is an SSH string: uint32 length, then name.
func isSFTPSubsystem(payload []byte) bool {
	return len(payload) > 4 && string(payload[4:]) == "sftp"
}
