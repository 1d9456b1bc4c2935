package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/config"
	"declarehub/internal/core/domain"
)

// httpChecker calls an external verification provider over HTTPS and
// returns the raw response body as the result payload.
type httpChecker struct {
	checkType domain.VerificationType
	baseURL   string
	apiKey    string
	client    *http.Client
}

// NewCIPCChecker creates the company registry checker
func NewCIPCChecker(cfg *config.Config) Checker {
	return newHTTPChecker(domain.VerificationCIPC, cfg.Verify.CIPCBaseURL, cfg)
}

// NewCreditCheckChecker creates the credit bureau checker
func NewCreditCheckChecker(cfg *config.Config) Checker {
	return newHTTPChecker(domain.VerificationCreditCheck, cfg.Verify.CreditCheckBaseURL, cfg)
}

func newHTTPChecker(checkType domain.VerificationType, baseURL string, cfg *config.Config) Checker {
	timeout := time.Duration(cfg.Verify.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpChecker{
		checkType: checkType,
		baseURL:   baseURL,
		apiKey:    cfg.Verify.APIKey,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *httpChecker) Type() domain.VerificationType {
	return c.checkType
}

func (c *httpChecker) Run(ctx context.Context, employee *models.Employee) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("%s provider not configured", c.checkType)
	}

	body, err := json.Marshal(map[string]string{
		"emp_no":    employee.EmpNo,
		"full_name": employee.FullName,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lookup", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s provider unreachable: %w", c.checkType, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s provider returned %d", c.checkType, resp.StatusCode)
	}

	return string(payload), nil
}
