// Package africastalking sends SMS through the Africa's Talking messaging API.
package africastalking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/orderdesk/internal/notification/domain"
	obstracing "github.com/smallbiznis/orderdesk/internal/observability/tracing"
)

const (
	ProviderName = "africastalking"

	SandboxEndpoint    = "https://api.sandbox.africastalking.com"
	ProductionEndpoint = "https://api.africastalking.com"

	messagingPath   = "/version1/messaging"
	statusSuccess   = "Success"
	maxResponseBody = 64 << 10
)

var ErrInvalidConfig = errors.New("africastalking: username and api key are required")

type Config struct {
	Username string
	APIKey   string
	SenderID string
	// Endpoint overrides the API base URL. Empty selects the sandbox for the
	// "sandbox" username and production otherwise.
	Endpoint string
	Timeout  time.Duration
}

type Client struct {
	username string
	apiKey   string
	senderID string
	endpoint string
	client   *http.Client
}

type messagingResponse struct {
	SMSMessageData struct {
		Message    string      `json:"Message"`
		Recipients []recipient `json:"Recipients"`
	} `json:"SMSMessageData"`
}

type recipient struct {
	StatusCode int    `json:"statusCode"`
	Number     string `json:"number"`
	Status     string `json:"status"`
	Cost       string `json:"cost"`
	MessageID  string `json:"messageId"`
}

func New(cfg Config) (*Client, error) {
	username := strings.TrimSpace(cfg.Username)
	apiKey := strings.TrimSpace(cfg.APIKey)
	if username == "" || apiKey == "" {
		return nil, ErrInvalidConfig
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = ProductionEndpoint
		if username == "sandbox" {
			endpoint = SandboxEndpoint
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		username: username,
		apiKey:   apiKey,
		senderID: strings.TrimSpace(cfg.SenderID),
		endpoint: endpoint,
		client:   obstracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
	}, nil
}

func (c *Client) Name() string {
	return ProviderName
}

func (c *Client) Send(ctx context.Context, destination, body string) (domain.Receipt, error) {
	values := url.Values{}
	values.Set("username", c.username)
	values.Set("to", destination)
	values.Set("message", body)
	if c.senderID != "" {
		values.Set("from", c.senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+messagingPath, strings.NewReader(values.Encode()))
	if err != nil {
		return domain.Receipt{}, err
	}
	req.Header.Set("apiKey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Receipt{}, c.failure("sms gateway unreachable", nil, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return domain.Receipt{}, c.failure("sms gateway response unreadable", nil, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		reason := strings.TrimSpace(string(payload))
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return domain.Receipt{}, c.failure(reason, map[string]any{
			"status_code": resp.StatusCode,
			"body":        reason,
		}, nil)
	}

	var raw map[string]any
	var parsed messagingResponse
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.Receipt{}, c.failure("sms gateway returned invalid json", nil, err)
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return domain.Receipt{}, c.failure("sms gateway returned invalid json", raw, err)
	}

	recipients := parsed.SMSMessageData.Recipients
	if len(recipients) == 0 {
		reason := strings.TrimSpace(parsed.SMSMessageData.Message)
		if reason == "" {
			reason = "no recipients accepted"
		}
		return domain.Receipt{}, c.failure(reason, raw, nil)
	}

	first := recipients[0]
	if !strings.EqualFold(first.Status, statusSuccess) {
		return domain.Receipt{}, c.failure(fmt.Sprintf("sms to %s rejected: %s", first.Number, first.Status), raw, nil)
	}

	return domain.Receipt{
		MessageID: first.MessageID,
		Status:    first.Status,
		Cost:      first.Cost,
		Raw:       raw,
	}, nil
}

func (c *Client) failure(reason string, raw map[string]any, err error) *domain.DeliveryError {
	return &domain.DeliveryError{
		Provider: ProviderName,
		Reason:   reason,
		Raw:      raw,
		Err:      err,
	}
}

var _ domain.Gateway = (*Client)(nil)
