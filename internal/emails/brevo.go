package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender dispatches claim and waitlist notifications. Delivery failures are
// transient: callers log them and keep their state, since a claimant who
// already has the code can still verify. Nil or key-less client = no-op.
type Sender interface {
	SendClaimCode(ctx context.Context, toEmail, causeName, code string) error
	SendWaitlistInvite(ctx context.Context, toEmail, causeName, claimLink string) error
	SendClaimConfirmed(ctx context.Context, toEmail, causeName string) error
}

// BrevoClient sends emails via the Brevo (Sendinblue) API.
// Env: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@carrykind.org"
}

func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "carrykind"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@carrykind.org", Name: "carrykind Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendClaimCode sends the 6-digit verification code for a pending claim.
func (c *BrevoClient) SendClaimCode(ctx context.Context, toEmail, causeName, code string) error {
	if c.APIKey == "" {
		return nil
	}
	return c.send(ctx, toEmail, "Your carrykind verification code", EmailLayout(claimCodeContent(causeName, code)))
}

// SendWaitlistInvite sends the magic-link email when a waitlisted claimant is
// promoted off the list.
func (c *BrevoClient) SendWaitlistInvite(ctx context.Context, toEmail, causeName, claimLink string) error {
	if c.APIKey == "" {
		return nil
	}
	return c.send(ctx, toEmail, "A tote is waiting for you", EmailLayout(waitlistInviteContent(causeName, claimLink)))
}

// SendClaimConfirmed sends the confirmation once a claim is verified.
func (c *BrevoClient) SendClaimConfirmed(ctx context.Context, toEmail, causeName string) error {
	if c.APIKey == "" {
		return nil
	}
	return c.send(ctx, toEmail, "Your tote is confirmed!", EmailLayout(claimConfirmedContent(causeName)))
}

func claimCodeContent(causeName, code string) string {
	return fmt.Sprintf(`
    <h1>Verify your tote claim</h1>
    <p>You requested a tote supporting <strong>%s</strong> on <strong>carrykind</strong>. Enter the code below to confirm your claim:</p>
    <center>
      <p style="font-size: 32px; letter-spacing: 8px; font-weight: 700; margin: 10px 0;">%s</p>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">
      This code expires in 10 minutes. Your tote stays on hold while you verify. If you did not request a tote, you can safely ignore this email.
    </p>
    <p>— The carrykind Team</p>
`, EscapeHTML(causeName), EscapeHTML(code))
}

func waitlistInviteContent(causeName, claimLink string) string {
	return fmt.Sprintf(`
    <h1>Good news — you're off the waitlist!</h1>
    <p>A tote supporting <strong>%s</strong> has been set aside for you on <strong>carrykind</strong>.</p>
    <p>Click the button below to claim it:</p>
    <center>
      <a href="%s" class="ck-button">Claim Your Tote</a>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">
      This link is single-use and expires in 48 hours. If you don't claim by then, your tote goes to the next person in line.
    </p>
    <p>— The carrykind Team</p>
`, EscapeHTML(causeName), claimLink)
}

func claimConfirmedContent(causeName string) string {
	return fmt.Sprintf(`
    <h1>Your tote is confirmed</h1>
    <p>Your claim for a tote supporting <strong>%s</strong> is verified. We'll email you again when it ships.</p>
    <p>Thank you for carrying kindly.</p>
    <p>— The carrykind Team</p>
`, EscapeHTML(causeName))
}
