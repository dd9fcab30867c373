package smtp

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/emersion/go-smtp"

	apperrors "github.com/listmill/listmill/internal/errors"
	"github.com/listmill/listmill/internal/models"
)

// target is one accepted recipient: a list to post to, or a list whose
// bounce address received a delivery-status report.
type target struct {
	list   *models.List
	bounce bool
}

// Session implements the go-smtp Session interface
type Session struct {
	backend *Backend
	from    string
	targets []target
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend) *Session {
	return &Session{
		backend: backend,
		targets: make([]target, 0),
	}
}

// AuthPlain handles PLAIN authentication (not required for receiving)
func (s *Session) AuthPlain(username, password string) error {
	return nil
}

// Mail handles the MAIL FROM command
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	if s.backend.logger != nil {
		s.backend.logger.Debug("MAIL FROM", slog.String("from", from))
	}
	return nil
}

// Rcpt handles the RCPT TO command. The recipient must resolve to a known
// mailing list, either directly or through its bounce address.
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	if _, _, err := parseEmailAddress(to); err != nil {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Invalid recipient address",
		}
	}

	ctx := context.Background()

	list, err := s.backend.lists.GetByMailto(ctx, to)
	if err == nil {
		s.targets = append(s.targets, target{list: list})
		if s.backend.logger != nil {
			s.backend.logger.Debug("RCPT TO", slog.String("to", to), slog.String("group_id", list.GroupID))
		}
		return nil
	}
	if !errors.Is(err, apperrors.ErrListNotFound) {
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary error",
		}
	}

	if listAddress, ok := SplitBounceAddress(to); ok {
		list, err := s.backend.lists.GetByMailto(ctx, listAddress)
		if err == nil {
			s.targets = append(s.targets, target{list: list, bounce: true})
			if s.backend.logger != nil {
				s.backend.logger.Debug("RCPT TO bounce address",
					slog.String("to", to), slog.String("group_id", list.GroupID))
			}
			return nil
		}
		if !errors.Is(err, apperrors.ErrListNotFound) {
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 3, 0},
				Message:      "Temporary error",
			}
		}
	}

	return &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 1},
		Message:      "Unknown mailing list",
	}
}

// Data handles the DATA command. Posts are ingested for every list
// recipient; bounce reports feed the bounce tracker. A failure on one
// recipient never aborts the others.
func (s *Session) Data(r io.Reader) error {
	if len(s.targets) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Failed to read message",
		}
	}

	ctx := context.Background()
	for _, tgt := range s.targets {
		if tgt.bounce {
			s.handleBounceReport(ctx, raw, tgt.list)
			continue
		}

		result, err := s.backend.processor.Process(ctx, raw, tgt.list)
		if err != nil {
			if s.backend.logger != nil {
				s.backend.logger.Error("failed to ingest message",
					slog.String("group_id", tgt.list.GroupID),
					slog.Any("error", err))
			}
			continue
		}
		if s.backend.logger != nil {
			s.backend.logger.Info("message ingested",
				slog.String("group_id", tgt.list.GroupID),
				slog.String("post_id", result.PostID),
				slog.Bool("created", result.Created))
		}
	}

	return nil
}

func (s *Session) handleBounceReport(ctx context.Context, raw []byte, list *models.List) {
	email, ok := ExtractBouncedAddress(raw)
	if !ok {
		if s.backend.logger != nil {
			s.backend.logger.Warn("bounce report without a recipient",
				slog.String("group_id", list.GroupID))
		}
		return
	}

	_, err := s.backend.bounces.HandleBounce(ctx, email, list.GroupID)
	if err != nil && s.backend.logger != nil {
		s.backend.logger.Error("failed to handle bounce",
			slog.String("email", email),
			slog.String("group_id", list.GroupID),
			slog.Any("error", err))
	}
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.targets = make([]target, 0)
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}
