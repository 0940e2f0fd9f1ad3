// =============================================================================
// Ack File Processor - Client Notification
// =============================================================================
//
// This module composes and sends the "files uploaded for review" email that
// follows a processing run. Delivery sits behind the Sender interface so the
// batch command can swap SMTP for a dry-run sender.
//
// =============================================================================

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
)

// ErrNoRecipients is returned when a message has no To addresses.
var ErrNoRecipients = errors.New("notification has no recipients")

// Message is a composed notification.
type Message struct {
	From    string
	To      []string
	CC      []string
	Subject string
	Body    string
}

// Sender delivers a notification.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// =============================================================================
// COMPOSITION
// =============================================================================

const subjectSuffix = "Ack File Processing Complete - Files Uploaded for Review"

// BuildSubject returns the default subject line. Agent names are preferred
// over agent numbers; both are sorted and comma-joined.
//
// EXAMPLE:
//   BuildSubject([]string{"Beta", "Acme"}, nil, "2025", "01")
//   => "Acme, Beta - Ack File Processing Complete - Files Uploaded for Review - January 2025"
func BuildSubject(names, numbers []string, year, month string) string {
	period := formatPeriod(year, month)

	prefix := joinSorted(names)
	if prefix == "" {
		prefix = joinSorted(numbers)
	}
	if prefix == "" {
		return subjectSuffix + " - " + period
	}

	return prefix + " - " + subjectSuffix + " - " + period
}

// DefaultBody is the message sent when no body is configured.
func DefaultBody() string {
	return `Hello,
an acknowledgement file has been posted to your sftp-output bucket. You'll find it in the out folder, where all acknowledgement files are placed for retrieval.

Please review the Client Action column for any steps required before resubmitting your file. The acknowledgement file reflects the information that will appear on your invoice.

If action is required, kindly resubmit by next month's end cycle. When resubmitting corrections, use the original file name and append "_corrections" (e.g., CLIENT_SALES_XXXXXXXX_corrections).

***As a reminder, the acknowledgement file communicates what was loaded and not loaded from your original submitted files. Some of the errors within the file need to be resolved by us, some need to be resolved by you, and some are not expected to be resolved (e.g. duplicate contract). Only the non-errors will be present in the invoice for that processing period. Please review your ACK file and contact us with any questions, and provide corrections before the next processing cycle (15 - 25 of each month).***

Best regards,
`
}

// Compose builds a message from configuration and the batch's agents.
func Compose(cfg config.NotificationConfig, to, names, numbers []string, year, month string) Message {
	msg := Message{
		From:    cfg.From,
		To:      to,
		CC:      cfg.CC,
		Subject: cfg.Subject,
		Body:    cfg.Body,
	}
	if msg.Subject == "" {
		msg.Subject = BuildSubject(names, numbers, year, month)
	}
	if msg.Body == "" {
		msg.Body = DefaultBody()
	}
	return msg
}

func formatPeriod(year, month string) string {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return strings.TrimSpace(month + " " + year)
	}
	return time.Month(m).String() + " " + year
}

func joinSorted(values []string) string {
	var clean []string
	seen := make(map[string]bool)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		clean = append(clean, v)
	}
	sort.Strings(clean)
	return strings.Join(clean, ", ")
}

// =============================================================================
// SENDERS
// =============================================================================

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig

	// send is smtp.SendMail, replaced in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender for the given server.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

// Send delivers msg to its To and CC recipients.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	rcpt := append(append([]string{}, msg.To...), msg.CC...)
	if err := s.send(addr, auth, msg.From, rcpt, Render(msg)); err != nil {
		return fmt.Errorf("failed to send notification via %s: %w", addr, err)
	}

	return nil
}

// Render produces the RFC 5322 message text. Header values come from client
// data, so line breaks are removed and the subject is RFC 2047 encoded when it
// is not plain ASCII.
func Render(msg Message) []byte {
	var b strings.Builder

	if msg.From != "" {
		fmt.Fprintf(&b, "From: %s\r\n", headerValue(msg.From))
	}
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(strings.Join(msg.To, ", ")))
	if len(msg.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", headerValue(strings.Join(msg.CC, ", ")))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(msg.Subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))

	return []byte(b.String())
}

// headerValue folds CR and LF runs into single spaces.
func headerValue(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool {
		return r == '\r' || r == '\n'
	}), " ")
}

// DryRunSender logs messages instead of sending them and keeps a copy.
type DryRunSender struct {
	Logger *slog.Logger
	Sent   []Message
}

// Send records msg and logs its envelope.
func (d *DryRunSender) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Notification not sent (dry run)",
		"to", strings.Join(msg.To, "; "),
		"cc", strings.Join(msg.CC, "; "),
		"subject", msg.Subject)

	d.Sent = append(d.Sent, msg)
	return nil
}
