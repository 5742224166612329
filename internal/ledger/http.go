package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ecotrace/internal/platform/config"
	"ecotrace/pkg/sentinel"
)

// HTTPRecorder submits proofs to a ledger gateway over HTTP. Non-2xx and
// transport errors surface as sentinel.ErrUnavailable.
type HTTPRecorder struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPRecorder(cfg config.LedgerConfig) *HTTPRecorder {
	return &HTTPRecorder{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (r *HTTPRecorder) Enabled() bool { return true }

func (r *HTTPRecorder) SubmitProof(ctx context.Context, proof Proof) (*Receipt, error) {
	body, err := json.Marshal(proof)
	if err != nil {
		return nil, fmt.Errorf("marshal proof: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/proofs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build proof request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit proof: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("submit proof: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("decode proof receipt: %w", err)
	}
	if receipt.TxRef == "" {
		return nil, fmt.Errorf("proof receipt missing tx ref: %w", sentinel.ErrUnavailable)
	}
	return &receipt, nil
}
