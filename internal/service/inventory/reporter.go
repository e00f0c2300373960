package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
)

const maxLoggedBody = 2048

type reportRequest struct {
	ProductName string `json:"productName"`
}

// reportResponse is the subset of the inventory answer the scanner understands.
type reportResponse struct {
	Success     bool   `json:"success"`
	NeedsPrice  bool   `json:"needsPrice"`
	Incremented bool   `json:"incremented"`
	Error       string `json:"error"`
}

// Reporter tells the inventory backend that a product was seen.
type Reporter struct {
	url    string
	token  string
	client *http.Client
	logger *logger.Logger
}

// NewReporter creates a Reporter that PATCHes url with the given bearer token.
func NewReporter(url, token string, timeout time.Duration, logger *logger.Logger) *Reporter {
	return &Reporter{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Report sends productName to the backend. Failures are logged and described in the
// returned Receipt; they are never returned as errors so a failed report cannot stop
// the detection loop.
func (r *Reporter) Report(ctx context.Context, productName string) dto.Receipt {
	payload, err := json.Marshal(reportRequest{ProductName: productName})
	if err != nil {
		return r.fail(productName, fmt.Errorf("failed to encode report: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, r.url, bytes.NewReader(payload))
	if err != nil {
		return r.fail(productName, fmt.Errorf("failed to build report request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return r.fail(productName, fmt.Errorf("failed to send report: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	if err != nil {
		r.logger.Warning("Could not read backend answer for %s: %v", productName, err)
	}

	receipt := dto.Receipt{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}

	var answer reportResponse
	if json.Unmarshal(body, &answer) == nil {
		receipt.Success = answer.Success
		receipt.NeedsPrice = answer.NeedsPrice
	}

	r.logger.Info("[BACKEND] %s -> %d %s", productName, resp.StatusCode, receipt.Body)

	switch {
	case answer.Error != "":
		r.logger.Warning("Backend rejected %s: %s", productName, answer.Error)
	case answer.NeedsPrice:
		r.logger.Warning("Product %s is not registered in the inventory yet, it needs a price", productName)
	case answer.Success && answer.Incremented:
		r.logger.Info("Stock of %s incremented", productName)
	}

	return receipt
}

func (r *Reporter) fail(productName string, err error) dto.Receipt {
	r.logger.Error("Report of %s failed: %v", productName, err)
	return dto.Receipt{Err: err.Error()}
}
