// Package abuse wraps the pre-registration risk check. The check is an
// external allow/deny decision; when it cannot affirmatively allow, the
// registration is denied (fail-closed).
package abuse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Decision is the filter verdict. Reason carries the provider's code when
// the request is denied ("disposable_domain", "known_bot", ...).
type Decision struct {
	Allow  bool
	Reason string
}

// Filter decides whether an email may register.
type Filter interface {
	Check(ctx context.Context, email string) (Decision, error)
}

// AllowAll is used when no filter endpoint is configured.
type AllowAll struct{}

func (AllowAll) Check(_ context.Context, _ string) (Decision, error) {
	return Decision{Allow: true}, nil
}

// HTTPFilter posts the candidate email to a risk endpoint and expects
// {"allow": bool, "reason": "..."} back. Any transport or decode failure is
// returned to the caller, who must treat it as a denial.
type HTTPFilter struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPFilter(endpoint string) *HTTPFilter {
	return &HTTPFilter{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (f *HTTPFilter) Check(ctx context.Context, email string) (Decision, error) {
	payload, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return Decision{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Decision{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("abuse: filter unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Decision{}, fmt.Errorf("abuse: filter returned status %d", resp.StatusCode)
	}

	var body struct {
		Allow  bool   `json:"allow"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Decision{}, fmt.Errorf("abuse: invalid filter response: %w", err)
	}

	return Decision{Allow: body.Allow, Reason: body.Reason}, nil
}
