// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// SMTPGateway delivers messages over SMTP.
type SMTPGateway struct {
	tlsConfig *tls.Config
	localName string
	logger    hclog.Logger
	now       func() time.Time
}

var _ Gateway = (*SMTPGateway)(nil)

// NewSMTPGateway creates an SMTPGateway.
//
// Supported options: WithLogger, WithTLSConfig, WithLocalName
func NewSMTPGateway(opt ...Option) *SMTPGateway {
	opts := getOpts(opt...)
	return &SMTPGateway{
		tlsConfig: opts.withTLSConfig,
		localName: opts.withLocalName,
		logger:    opts.withLogger.Named("mail"),
		now:       time.Now,
	}
}

// Send implements Gateway. The whole exchange is bounded by the context and
// the transport timeout, whichever is shorter.
func (g *SMTPGateway) Send(ctx context.Context, msg Message, opts TransportOptions) error {
	const op = "SMTPGateway.Send"
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if opts.Host == "" {
		return fmt.Errorf("%s: missing host: %w", op, ErrInvalidParameter)
	}
	if opts.TLS && opts.StartTLS {
		return fmt.Errorf("%s: tls and start_tls are mutually exclusive: %w", op, ErrInvalidParameter)
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	if err := g.send(ctx, msg, opts); err != nil {
		g.logger.Error("unable to send email", "addr", opts.Addr(), "error", err)
		return fmt.Errorf("%s: %w: %w", op, ErrSendFailed, err)
	}
	g.logger.Debug("sent email", "addr", opts.Addr())
	return nil
}

func (g *SMTPGateway) send(ctx context.Context, msg Message, opts TransportOptions) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", opts.Addr())
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if opts.TLS {
		conn = tls.Client(conn, g.clientTLS(opts.Host))
	}
	c, err := smtp.NewClient(conn, opts.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if g.localName != "" {
		if err := c.Hello(g.localName); err != nil {
			return err
		}
	}
	if opts.StartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return fmt.Errorf("server does not support STARTTLS")
		}
		if err := c.StartTLS(g.clientTLS(opts.Host)); err != nil {
			return err
		}
	}
	if opts.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", opts.Username, opts.Password, opts.Host)); err != nil {
			return err
		}
	}
	from, _ := mail.ParseAddress(msg.From)
	to, _ := mail.ParseAddress(msg.To)
	if err := c.Mail(from.Address); err != nil {
		return err
	}
	if err := c.Rcpt(to.Address); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(g.render(from, to, msg)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (g *SMTPGateway) clientTLS(host string) *tls.Config {
	c := &tls.Config{MinVersion: tls.VersionTLS12}
	if g.tlsConfig != nil {
		c = g.tlsConfig.Clone()
	}
	if c.ServerName == "" {
		c.ServerName = host
	}
	return c
}

// render returns the message with its headers and CRLF line endings.
func (g *SMTPGateway) render(from, to *mail.Address, msg Message) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", g.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\r\n")
	}
	return b.Bytes()
}
