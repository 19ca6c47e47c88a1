package crm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/service"
)

// statusMap CRM pipeline vocabulary to client statuses. The CRM still
// reports the old "approved" stage, which is PREAPPROVED here.
var statusMap = map[string]domain.ClientStatus{
	"submitted":         domain.StatusSubmitted,
	"contacted":         domain.StatusContacted,
	"qualified":         domain.StatusQualified,
	"submitted_to_bank": domain.StatusSubmittedToBank,
	"preapproved":       domain.StatusPreapproved,
	"approved":          domain.StatusPreapproved,
	"fol_received":      domain.StatusFOLReceived,
	"disbursed":         domain.StatusDisbursed,
	"declined":          domain.StatusDeclined,
}

// MapStatus translates a CRM pipeline status.
func MapStatus(raw string) (domain.ClientStatus, bool) {
	st, ok := statusMap[strings.ToLower(strings.TrimSpace(raw))]
	return st, ok
}

type leadStatusResponse struct {
	PipelineStatus string              `json:"pipeline_status"`
	MortgageAmount decimal.NullDecimal `json:"mortgage_amount"`
}

// Client Rivo CRM lead API
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &Client{httpClient: client, logger: logger}
}

func (c *Client) FetchLeadStatus(ctx context.Context, leadID string) (*service.LeadStatus, error) {
	var body leadStatusResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/leads/status/" + url.PathEscape(leadID) + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to call CRM: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("CRM returned %d for lead %s", resp.StatusCode(), leadID)
	}

	st, ok := MapStatus(body.PipelineStatus)
	if !ok {
		return nil, fmt.Errorf("unknown CRM status %q for lead %s", body.PipelineStatus, leadID)
	}
	out := &service.LeadStatus{Status: st}
	if body.MortgageAmount.Valid && body.MortgageAmount.Decimal.IsPositive() {
		amount := body.MortgageAmount.Decimal
		out.MortgageAmount = &amount
	}
	c.logger.Debug("CRM lead status", zap.String("lead_id", leadID), zap.String("status", string(st)))
	return out, nil
}
