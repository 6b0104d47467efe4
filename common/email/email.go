package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/logger"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names one of the embedded HTML bodies.
type Template string

const (
	TemplateBookingReceived  Template = "booking_received"
	TemplatePaymentConfirmed Template = "payment_confirmed"
	TemplateWelcome          Template = "welcome"
)

var subjects = map[Template]string{
	TemplateBookingReceived:  "Booking received: %s",
	TemplatePaymentConfirmed: "Your FusionX tickets: %s",
	TemplateWelcome:          "Welcome to %s",
}

// ============================================================
// CONFIGURATION & SERVICE
// ============================================================

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Sender delivers one templated message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered-on-send email. Data must match the template.
type Message struct {
	To          string
	Template    Template
	Subject     string
	Data        interface{}
	Attachments []Attachment
}

type Attachment struct {
	Filename string
	Data     []byte
	MimeType string
}

// SMTPSender sends through an SMTP relay. Without credentials it runs in
// dev mode and only logs what it would have sent.
type SMTPSender struct {
	config    Config
	devMode   bool
	dialer    *gomail.Dialer
	templates *template.Template
	log       *logger.Logger
}

func NewSMTPSender(config Config, log *logger.Logger) (*SMTPSender, error) {
	if log == nil {
		log = logger.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	devMode := config.Username == "" || config.Password == ""
	s := &SMTPSender{
		config:    config,
		devMode:   devMode,
		templates: tmpl,
		log:       log.With("component", "email"),
	}
	if !devMode {
		s.dialer = gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	}
	return s, nil
}

// DevMode reports whether messages are logged instead of sent.
func (s *SMTPSender) DevMode() bool {
	return s.devMode
}

// Render executes the named template against data.
func (s *SMTPSender) Render(name Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, string(name), data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := s.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}

	if s.devMode {
		names := make([]string, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			names = append(names, a.Filename)
		}
		s.log.WithFields(map[string]interface{}{
			"to":          msg.To,
			"template":    string(msg.Template),
			"subject":     msg.Subject,
			"attachments": strings.Join(names, ","),
		}).Info("[DEV MODE] email not sent")
		return nil
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.From, s.config.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", body)
	for _, a := range msg.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.MimeType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.MimeType}}))
		}
		m.Attach(a.Filename, settings...)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return apperrors.EmailError(fmt.Errorf("smtp send to %s: %w", msg.To, err))
	}
	s.log.With("to", msg.To).With("template", string(msg.Template)).Info("email sent")
	return nil
}

// ============================================================
// TEMPLATE DATA
// ============================================================

type MemberLine struct {
	Name       string
	Email      string
	MemberCode string
	TicketURL  string
}

type BookingReceivedData struct {
	Name        string
	EventTitle  string
	BookingCode string
	Date        string
	Time        string
	Category    string
	Quantity    int
	Total       string
	Members     []MemberLine
}

type PaymentConfirmedData struct {
	Name        string
	EventTitle  string
	BookingCode string
	Date        string
	Time        string
	Category    string
	Total       string
	PaymentID   string
	Members     []MemberLine
}

type WelcomeData struct {
	Name        string
	EventTitle  string
	MemberCode  string
	CheckedInAt string
}

// Subject builds the standard subject line for a template.
func Subject(name Template, eventTitle string) string {
	if format, ok := subjects[name]; ok {
		return fmt.Sprintf(format, eventTitle)
	}
	return eventTitle
}

// ============================================================
// TEST DOUBLE
// ============================================================

// Recorder keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
	Err      error
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Messages = append(r.Messages, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.Messages))
	copy(out, r.Messages)
	return out
}
