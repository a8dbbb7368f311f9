package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Solver delegates challenge pages to a FlareSolverr-compatible endpoint,
// which drives a real browser and returns the solved page plus clearance
// cookies.
type Solver struct {
	endpoint string
	client   *resty.Client
	timeout  time.Duration
}

// NewSolver builds a solver client, or nil when no endpoint is configured.
func NewSolver(endpoint string, timeout time.Duration) *Solver {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil
	}
	return &Solver{
		endpoint: endpoint,
		client:   resty.New().SetTimeout(timeout + 10*time.Second),
		timeout:  timeout,
	}
}

type solverRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int    `json:"maxTimeout"`
}

type solverCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type solverSolution struct {
	Status    int            `json:"status"`
	URL       string         `json:"url"`
	Response  string         `json:"response"`
	UserAgent string         `json:"userAgent"`
	Cookies   []solverCookie `json:"cookies"`
}

type solverResponse struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Solution *solverSolution `json:"solution"`
}

// Solved is the outcome of a successful solver delegation.
type Solved struct {
	Status    int
	FinalURL  string
	Body      string
	UserAgent string
	Cookies   map[string]string
}

// Solve asks the solver to fetch url through a browser session.
func (s *Solver) Solve(ctx context.Context, url string) (Solved, error) {
	var out solverResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(solverRequest{
			Cmd:        "request.get",
			URL:        url,
			MaxTimeout: int(s.timeout.Milliseconds()),
		}).
		SetResult(&out).
		Post(s.endpoint + "/v1")
	if err != nil {
		return Solved{}, fmt.Errorf("solver request: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return Solved{}, fmt.Errorf("solver HTTP %d", resp.StatusCode())
	}
	if out.Solution == nil {
		return Solved{}, fmt.Errorf("solver: missing solution (%s)", out.Message)
	}

	sol := out.Solution
	if sol.Status < 200 || sol.Status >= 400 {
		return Solved{}, fmt.Errorf("solver: unsolved status %d", sol.Status)
	}

	finalURL := sol.URL
	if !strings.HasPrefix(finalURL, "http://") && !strings.HasPrefix(finalURL, "https://") {
		finalURL = url
	}
	cookies := make(map[string]string, len(sol.Cookies))
	for _, c := range sol.Cookies {
		if c.Name != "" && c.Value != "" {
			cookies[c.Name] = c.Value
		}
	}
	return Solved{
		Status:    sol.Status,
		FinalURL:  finalURL,
		Body:      sol.Response,
		UserAgent: sol.UserAgent,
		Cookies:   cookies,
	}, nil
}
