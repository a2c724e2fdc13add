package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// PaygateAdapter talks to the hosted payment-session provider. No retries:
// a failed call is absorbed by the orchestrator's fallback policy, and the
// caller's context carries the only timeout.
type PaygateAdapter struct {
	BaseURL    string
	SecretKey  string
	ReturnURL  string
	httpClient *http.Client
}

func NewPaygateAdapter(baseURL, secretKey, returnURL string) *PaygateAdapter {
	return &PaygateAdapter{
		BaseURL:    baseURL,
		SecretKey:  secretKey,
		ReturnURL:  returnURL,
		httpClient: http.DefaultClient,
	}
}

func (p *PaygateAdapter) CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error) {
	payload := map[string]any{
		"session_id": req.SessionID,
		"amount":     req.AmountCents,
		"currency":   req.Currency,
		"return_url": p.ReturnURL,
		"orders":     req.Orders,
	}

	body, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v2/sessions", bytes.NewBuffer(body))
	if err != nil {
		return SessionResponse{}, fmt.Errorf("paygate create session: %w", err)
	}
	httpReq.Header.Set("Authorization", "key "+p.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("paygate create session: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return SessionResponse{}, fmt.Errorf("paygate create session: status %d: %s", resp.StatusCode, string(raw))
	}

	var out struct {
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return SessionResponse{}, fmt.Errorf("paygate create session: decode: %w", err)
	}
	if out.RedirectURL == "" {
		return SessionResponse{}, fmt.Errorf("paygate create session: empty redirect_url")
	}

	return SessionResponse{RedirectURL: out.RedirectURL}, nil
}

func (p *PaygateAdapter) VerifySession(ctx context.Context, sessionID string) (bool, error) {
	u := fmt.Sprintf("%s/v2/sessions/%s", p.BaseURL, url.PathEscape(sessionID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("paygate verify session: %w", err)
	}
	httpReq.Header.Set("Authorization", "key "+p.SecretKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("paygate verify session: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("paygate verify session: status %d: %s", resp.StatusCode, string(raw))
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, fmt.Errorf("paygate verify session: decode: %w", err)
	}

	return out.Status == "completed", nil
}
