package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const resendAPIURL = "https://api.resend.com/emails"

// MailClient delivers email through the Resend HTTP API.
type MailClient struct {
	apiKey     string
	from       string
	apiURL     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewMailClient(apiKey, from string, log *zap.Logger) *MailClient {
	return &MailClient{
		apiKey: apiKey,
		from:   from,
		apiURL: resendAPIURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type resendEmail struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

func (c *MailClient) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if c.apiKey == "" {
		return fmt.Errorf("mail client not configured: missing API key")
	}

	body, err := json.Marshal(resendEmail{
		From:    c.from,
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail service returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// VerifyLinkHTML renders the button-plus-fallback body both flows share.
func VerifyLinkHTML(heading, action, buttonLabel, link string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>%s</h2>
  <p>Click the button below to %s:</p>
  <a href="%s" style="display: inline-block; padding: 12px 24px; background-color: #0070f3; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0;">%s</a>
  <p>Or copy and paste this link into your browser:</p>
  <p style="color: #666; word-break: break-all;">%s</p>
  <p style="color: #999; font-size: 12px; margin-top: 30px;">This link will expire in 15 minutes. If you didn't request this email, you can safely ignore it.</p>
</div>`, heading, action, link, buttonLabel, link)
}

func VerifyLinkText(action, link string) string {
	return fmt.Sprintf("Click the link below to %s:\n\n%s\n\nThis link will expire in 15 minutes. If you didn't request this email, you can safely ignore it.", action, link)
}
