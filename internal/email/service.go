package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/campusreg/server/internal/config"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service sends transactional email through Resend. When delivery is
// disabled, sends are logged and skipped.
type Service struct {
	config       config.EmailConfig
	resendClient *resend.Client
	templates    *template.Template
	logger       zerolog.Logger
}

// ConfirmationData fills the registration confirmation template.
type ConfirmationData struct {
	StudentName  string
	CourseTitle  string
	CourseCode   string
	RegisteredAt string // display-formatted timestamp
	CurrentYear  int
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := checkAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend API key is required when email is enabled")
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	var client *resend.Client
	if cfg.Enabled {
		client = resend.NewClient(cfg.ResendAPIKey)
	}

	return &Service{
		config:       cfg,
		resendClient: client,
		templates:    templates,
		logger:       logger.With().Str("component", "email").Logger(),
	}, nil
}

// Enabled reports whether the service will actually deliver mail.
func (s *Service) Enabled() bool {
	return s.config.Enabled
}

// SendRegistrationConfirmation renders and delivers the confirmation email
// for one registration. The recipient address is validated before anything
// is rendered.
func (s *Service) SendRegistrationConfirmation(ctx context.Context, to string, data ConfirmationData) error {
	if err := checkAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("course_code", data.CourseCode).
			Msg("email disabled, skipping confirmation")
		return nil
	}

	data.CurrentYear = time.Now().Year()
	htmlBody, err := s.render("registration_confirmation.html", data)
	if err != nil {
		return fmt.Errorf("failed to render confirmation template: %w", err)
	}

	subject := fmt.Sprintf("Registration confirmed: %s", data.CourseCode)
	if err := s.deliver(ctx, to, subject, htmlBody); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	s.logger.Info().
		Str("to", to).
		Str("course_code", data.CourseCode).
		Msg("confirmation email sent")
	return nil
}

// checkAddress rejects malformed addresses and CRLF header injection.
func checkAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

func (s *Service) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
