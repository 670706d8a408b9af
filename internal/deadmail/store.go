// Package deadmail stores email-like messages as JSON files in the virtual
// filesystem.
package deadmail

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/hpungsan/shadowscript/internal/vfs"
)

// Dir holds one <id>.json file per email.
const Dir = vfs.DeadMailDir

// Email is one message.
type Email struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	IsRead    bool   `json:"isRead"`
}

// Filesystem is the subset of the virtual filesystem the store uses.
type Filesystem interface {
	Exists(ctx context.Context, path string) (bool, error)
	CreateDirectory(ctx context.Context, path string) error
	CreateFile(ctx context.Context, path, content string) error
	ReadFile(ctx context.Context, path string) (string, error)
	UpdateFile(ctx context.Context, path, content string) error
	DeleteFile(ctx context.Context, path string) error
	ListDirectory(ctx context.Context, path string) ([]vfs.Entry, error)
}

// Store reads and writes emails under Dir.
type Store struct {
	fs     Filesystem
	logger *zap.Logger
	now    func() time.Time
}

// NewStore returns a store on fs. logger may be nil.
func NewStore(fs Filesystem, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{fs: fs, logger: logger, now: time.Now}
}

// SendInput contains parameters for Send.
type SendInput struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Send writes a new email. Sent mail is stored already read.
func (s *Store) Send(ctx context.Context, in SendInput) (*Email, error) {
	if strings.TrimSpace(in.To) == "" {
		return nil, errors.NewInvalidRequest("to is required")
	}
	if strings.TrimSpace(in.Subject) == "" {
		return nil, errors.NewInvalidRequest("subject is required")
	}
	from := in.From
	if from == "" {
		from = "user@shadowscript.os"
	}

	if err := s.ensureDir(ctx); err != nil {
		return nil, err
	}

	email := &Email{
		ID:        ulid.Make().String(),
		From:      from,
		To:        in.To,
		Subject:   in.Subject,
		Body:      in.Body,
		Timestamp: s.now().UnixMilli(),
		IsRead:    true,
	}
	data, err := encode(email)
	if err != nil {
		return nil, err
	}
	if err := s.fs.CreateFile(ctx, path(email.ID), data); err != nil {
		return nil, err
	}
	return email, nil
}

// Deliver stores an email as received (unread), keeping its ID if set.
func (s *Store) Deliver(ctx context.Context, email Email) (*Email, error) {
	if email.ID == "" {
		email.ID = ulid.Make().String()
	}
	if err := validateID(email.ID); err != nil {
		return nil, err
	}
	if email.Timestamp == 0 {
		email.Timestamp = s.now().UnixMilli()
	}
	email.IsRead = false

	if err := s.ensureDir(ctx); err != nil {
		return nil, err
	}
	data, err := encode(&email)
	if err != nil {
		return nil, err
	}
	if err := s.fs.CreateFile(ctx, path(email.ID), data); err != nil {
		return nil, err
	}
	return &email, nil
}

// Inbox returns every readable email, newest first. Files that do not parse
// are logged and skipped.
func (s *Store) Inbox(ctx context.Context) ([]Email, error) {
	if err := s.ensureDir(ctx); err != nil {
		return nil, err
	}
	entries, err := s.fs.ListDirectory(ctx, Dir)
	if err != nil {
		return nil, err
	}

	emails := make([]Email, 0, len(entries))
	for _, e := range entries {
		if e.Type != vfs.TypeFile || !strings.HasSuffix(e.Name, ".json") {
			continue
		}
		content, err := s.fs.ReadFile(ctx, e.Path)
		if err != nil {
			s.logger.Warn("failed to read email", zap.String("path", e.Path), zap.Error(err))
			continue
		}
		var email Email
		if err := sonic.ConfigStd.UnmarshalFromString(content, &email); err != nil {
			s.logger.Warn("failed to parse email", zap.String("path", e.Path), zap.Error(err))
			continue
		}
		emails = append(emails, email)
	}

	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].Timestamp > emails[j].Timestamp
	})
	return emails, nil
}

// Open returns an email and marks it read. Failing to persist the read flag
// is logged and otherwise ignored.
func (s *Store) Open(ctx context.Context, id string) (*Email, error) {
	email, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if email.IsRead {
		return email, nil
	}

	email.IsRead = true
	data, err := encode(email)
	if err == nil {
		err = s.fs.UpdateFile(ctx, path(id), data)
	}
	if err != nil {
		s.logger.Warn("failed to mark email read", zap.String("id", id), zap.Error(err))
	}
	return email, nil
}

// Get returns an email without changing it.
func (s *Store) Get(ctx context.Context, id string) (*Email, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	content, err := s.fs.ReadFile(ctx, path(id))
	if err != nil {
		return nil, err
	}
	var email Email
	if err := sonic.ConfigStd.UnmarshalFromString(content, &email); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &email, nil
}

// Delete removes an email.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.fs.DeleteFile(ctx, path(id))
}

// Unread counts the emails not yet opened.
func Unread(emails []Email) int {
	n := 0
	for _, e := range emails {
		if !e.IsRead {
			n++
		}
	}
	return n
}

func (s *Store) ensureDir(ctx context.Context) error {
	ok, err := s.fs.Exists(ctx, Dir)
	if err != nil || ok {
		return err
	}
	return s.fs.CreateDirectory(ctx, Dir)
}

func path(id string) string {
	return Dir + "/" + id + ".json"
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return errors.NewInvalidRequest("invalid email id: " + id)
	}
	return nil
}

func encode(email *Email) (string, error) {
	data, err := sonic.ConfigStd.MarshalIndent(email, "", "  ")
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return string(data), nil
}
