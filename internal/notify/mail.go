package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/pkg/logger"
)

const mailTemplate = `<html>
<body>
<h3>Trading advice for {{.Date}}</h3>
<table border="1" cellpadding="6" cellspacing="0">
  <tr><th>Ticker</th><th>Action</th><th>Confidence</th><th>Rationale</th></tr>
{{- range .Rows}}
  <tr>
    <td>{{.Ticker}}</td>
    <td><b>{{.Action}}</b></td>
    <td>{{printf "%.0f%%" .Confidence}}</td>
    <td>{{.Rationale}}</td>
  </tr>
{{- end}}
</table>
</body>
</html>`

var mailTmpl = template.Must(template.New("advice").Parse(mailTemplate))

// MailConfig configures the SMTP notifier.
type MailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.From != "" && len(c.To) > 0
}

// sendFunc matches smtp.SendMail; swapped in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailNotifier delivers a daily advice digest over SMTP.
type MailNotifier struct {
	cfg  MailConfig
	send sendFunc
	log  *logger.Logger
}

func NewMailNotifier(cfg MailConfig, log *logger.Logger) *MailNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &MailNotifier{cfg: cfg, send: smtp.SendMail, log: log}
}

func (n *MailNotifier) Name() string { return "mail" }

func (n *MailNotifier) Notify(ctx context.Context, advice []*models.Advice) error {
	if len(advice) == 0 {
		return nil
	}
	if !n.cfg.Enabled() {
		return fmt.Errorf("mail notifier not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := renderDigest(advice)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}

	subject := fmt.Sprintf("Trading advice digest (%d actionable)", len(advice))
	msg := buildMessage(n.cfg.From, n.cfg.To, subject, body)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprintf("%d", n.cfg.Port))
	if err := n.send(addr, auth, n.cfg.From, n.cfg.To, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	n.log.Info("advice digest mailed",
		logger.Int("recipients", len(n.cfg.To)),
		logger.Int("advice", len(advice)),
	)
	return nil
}

type mailRow struct {
	Ticker     string
	Action     string
	Confidence float64
	Rationale  string
}

func renderDigest(advice []*models.Advice) (string, error) {
	rows := make([]mailRow, 0, len(advice))
	for _, a := range advice {
		rows = append(rows, mailRow{
			Ticker:     a.Ticker,
			Action:     string(a.Action),
			Confidence: a.Confidence * 100,
			Rationale:  a.Rationale,
		})
	}

	var buf bytes.Buffer
	err := mailTmpl.Execute(&buf, struct {
		Date string
		Rows []mailRow
	}{
		Date: time.Now().UTC().Format("2006-01-02"),
		Rows: rows,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
