package correlation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	appcorrelation "3tcapital/correlate/internal/application/correlation"
	corecorrelation "3tcapital/correlate/internal/core/correlation"
	httpinfra "3tcapital/correlate/internal/infrastructure/http"
)

// JobRunner runs jobs under their own correlation, nested in the caller's.
type JobRunner interface {
	RunAll(ctx context.Context, jobs []appcorrelation.Job) ([]appcorrelation.JobResult, error)
}

// Handler exposes the ambient correlation of a request and fans work out
// into nested correlations.
type Handler struct {
	accessor   corecorrelation.Accessor
	runner     JobRunner
	client     *http.Client
	downstream string
	maxFanout  int
	log        *slog.Logger
}

type Options struct {
	Accessor corecorrelation.Accessor
	Runner   JobRunner
	// Client and DownstreamURL are optional; without them fan-out jobs do no I/O.
	Client        *http.Client
	DownstreamURL string
	MaxFanout     int
	Logger        *slog.Logger
}

func NewHandler(opts Options) (*Handler, error) {
	if opts.Accessor == nil {
		return nil, corecorrelation.ErrMissingAccessor
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("job runner is required")
	}
	if opts.MaxFanout <= 0 {
		opts.MaxFanout = 100
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		accessor:   opts.Accessor,
		runner:     opts.Runner,
		client:     opts.Client,
		downstream: opts.DownstreamURL,
		maxFanout:  opts.MaxFanout,
		log:        opts.Logger,
	}, nil
}

type currentResponse struct {
	CorrelationID string `json:"correlationId"`
}

// Current reports the correlation id the request runs under.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	response := currentResponse{}
	if cc := h.accessor.Current(ctx); cc != nil {
		response.CorrelationID = cc.CorrelationID
	}
	h.log.InfoContext(ctx, "correlation requested")
	httpinfra.WriteJSON(ctx, w, http.StatusOK, response, h.log)
}

type childResponse struct {
	Index          int    `json:"index"`
	CorrelationID  string `json:"correlationId"`
	DownstreamCode int    `json:"downstreamStatus,omitempty"`
	Error          string `json:"error,omitempty"`
}

type fanoutResponse struct {
	CorrelationID string          `json:"correlationId"`
	Children      []childResponse `json:"children"`
}

// Fanout runs n jobs concurrently, each in its own correlation nested under
// the request's.
func (h *Handler) Fanout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.parseCount(r)
	if err != nil {
		httpinfra.WriteError(ctx, w, http.StatusBadRequest, "Validation failed", []string{err.Error()}, h.log)
		return
	}

	statuses := make([]int, n)
	jobs := make([]appcorrelation.Job, n)
	for i := range jobs {
		i := i
		jobs[i] = appcorrelation.Job{Work: func(ctx context.Context) error {
			code, err := h.callDownstream(ctx)
			statuses[i] = code
			return err
		}}
	}

	results, err := h.runner.RunAll(ctx, jobs)
	if err != nil {
		h.log.ErrorContext(ctx, "fan-out aborted", "error", err)
		httpinfra.WriteError(ctx, w, http.StatusServiceUnavailable, "Fan-out aborted", []string{err.Error()}, h.log)
		return
	}

	response := fanoutResponse{Children: make([]childResponse, 0, len(results))}
	if cc := h.accessor.Current(ctx); cc != nil {
		response.CorrelationID = cc.CorrelationID
	}
	for _, res := range results {
		child := childResponse{
			Index:          res.Index,
			CorrelationID:  res.CorrelationID,
			DownstreamCode: statuses[res.Index],
		}
		if res.Error != nil {
			child.Error = res.Error.Error()
		}
		response.Children = append(response.Children, child)
	}

	h.log.InfoContext(ctx, "fan-out completed", "jobs", n)
	httpinfra.WriteJSON(ctx, w, http.StatusOK, response, h.log)
}

func (h *Handler) parseCount(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("n must be a positive integer")
	}
	if n > h.maxFanout {
		return 0, fmt.Errorf("n must not exceed %d", h.maxFanout)
	}
	return n, nil
}

// callDownstream performs the job's outgoing call; the client stamps the
// job's correlation id on it.
func (h *Handler) callDownstream(ctx context.Context) (int, error) {
	if h.client == nil || h.downstream == "" {
		return 0, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.downstream, nil)
	if err != nil {
		return 0, fmt.Errorf("build downstream request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call downstream: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("downstream returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
