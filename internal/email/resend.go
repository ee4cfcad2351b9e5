package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// deliver hands the rendered message to the Resend API. A 429 from Resend is
// wrapped with the reset window so the caller's retry policy can back off.
func (s *Service) deliver(ctx context.Context, to, subject, htmlBody string) error {
	if s.resendClient == nil {
		return errors.New("resend client not configured")
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	})
	var throttled *resend.RateLimitError
	switch {
	case errors.As(err, &throttled):
		s.logger.Warn().
			Str("remaining", throttled.Remaining).
			Str("reset", throttled.Reset).
			Msg("resend throttled")
		return fmt.Errorf("resend throttled, resets in %ss: %w", throttled.Reset, err)
	case err != nil:
		return fmt.Errorf("resend send: %w", err)
	}

	s.logger.Info().
		Str("email_id", sent.Id).
		Str("to", to).
		Msg("email delivered")
	return nil
}
