package notifier

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type MailMessage struct {
	From        string
	To          []string
	Subject     string
	Body        string
	Attachments []string
}

type MailSender interface {
	Send(msg MailMessage) error
}

// SMTPClient delivers mail through a single relay. No authentication;
// the relay is expected to accept mail from this host.
type SMTPClient struct {
	addr string
}

func NewSMTPClient(addr string) *SMTPClient {
	return &SMTPClient{addr: addr}
}

func (c *SMTPClient) Send(msg MailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("smtp send: empty recipient list")
	}
	raw, err := BuildMIME(msg)
	if err != nil {
		return err
	}
	return smtp.SendMail(c.addr, nil, msg.From, msg.To, raw)
}

const mimeBoundary = "pager-notifier-mixed"

// BuildMIME renders the RFC 822 message: plain text when there are no
// attachments, multipart/mixed with base64 file parts otherwise.
func BuildMIME(msg MailMessage) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.Body)
		return b.Bytes(), nil
	}

	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")

	for _, path := range msg.Attachments {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read attachment %q: %w", path, err)
		}
		name := filepath.Base(path)
		ctype := mime.TypeByExtension(filepath.Ext(name))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", ctype)
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", name)
		b.WriteString("\r\n")
		writeBase64Wrapped(&b, content)
	}
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return b.Bytes(), nil
}

func writeBase64Wrapped(b *bytes.Buffer, content []byte) {
	enc := base64.StdEncoding.EncodeToString(content)
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	if len(enc) > 0 {
		b.WriteString(enc)
		b.WriteString("\r\n")
	}
}
