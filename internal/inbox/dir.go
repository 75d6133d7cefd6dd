// Package inbox reads candidate emails from a local directory.
package inbox

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/amishk599/applytrack/internal/model"
)

// Ensure DirSource implements model.EmailSource.
var _ model.EmailSource = (*DirSource)(nil)

// DirSource reads *.eml and *.txt files from a directory. Files that cannot
// be parsed are logged and skipped.
type DirSource struct {
	dir    string
	logger *slog.Logger
}

// NewDirSource returns a source over dir.
func NewDirSource(dir string, logger *slog.Logger) *DirSource {
	return &DirSource{dir: dir, logger: logger}
}

// FetchEmails returns every readable email in the directory, sorted by file name.
func (s *DirSource) FetchEmails(ctx context.Context) ([]model.Email, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox %s: %w", s.dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var emails []model.Email
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".eml" && ext != ".txt" {
			continue
		}

		email, err := ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable email", "path", path, "error", err)
			continue
		}
		emails = append(emails, email)
	}
	return emails, nil
}

// ReadFile loads one email file. .eml files are parsed as RFC 5322 messages;
// anything else is treated as a plain-text body.
func ReadFile(path string) (model.Email, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Email{}, fmt.Errorf("read %s: %w", path, err)
	}

	var email model.Email
	if strings.EqualFold(filepath.Ext(path), ".eml") {
		email, err = ParseMessage(data)
		if err != nil {
			return model.Email{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		email = model.Email{ID: contentID(data), Body: string(data)}
	}
	email.Path = path

	if email.Received.IsZero() {
		if info, err := os.Stat(path); err == nil {
			email.Received = info.ModTime().UTC()
		}
	}
	return email, nil
}

// ParseMessage parses a raw RFC 5322 message. The ID is the Message-ID header
// when present and a content hash otherwise.
func ParseMessage(raw []byte) (model.Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return model.Email{}, fmt.Errorf("read message: %w", err)
	}

	body, err := readBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return model.Email{}, err
	}

	email := model.Email{
		ID:      strings.Trim(strings.TrimSpace(msg.Header.Get("Message-Id")), "<>"),
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    decodeHeader(msg.Header.Get("From")),
		Body:    body,
	}
	if email.ID == "" {
		email.ID = contentID(raw)
	}
	if date, err := msg.Header.Date(); err == nil {
		email.Received = date.UTC()
	}
	return email, nil
}

func contentID(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
