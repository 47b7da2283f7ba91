// Package remote talks to the question generation service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"mockinterview/internal/domain"
	"mockinterview/internal/ports"
)

const (
	EndpointQuestions    = "generate-questions"
	EndpointNextQuestion = "generate-next-question"
	EndpointFeedback     = "generate-feedback"
)

const maxResponseBytes = 4 << 20

var (
	// ErrEmptyResponse is returned when the service answers without content.
	ErrEmptyResponse = errors.New("remote: empty response")
)

// StatusError is returned for non-2xx answers.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote %s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.QuestionService over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    ports.Metrics
}

// New builds a client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger, metrics ports.Metrics) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With("component", "remote"),
		metrics:    metrics,
	}
}

type wireQuestion struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Question string `json:"question,omitempty"`
	Category string `json:"category"`
}

type wireResponse struct {
	QuestionID int    `json:"questionId"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Phase      string `json:"phase"`
	Timestamp  string `json:"timestamp"`
	DurationMS int64  `json:"duration"`
}

func toWireResponses(responses []domain.Response) []wireResponse {
	out := make([]wireResponse, 0, len(responses))
	for _, r := range responses {
		out = append(out, wireResponse{
			QuestionID: r.QuestionID,
			Question:   r.QuestionText,
			Answer:     r.Answer,
			Phase:      string(r.Phase),
			Timestamp:  r.Timestamp.UTC().Format(time.RFC3339),
			DurationMS: r.Duration.Milliseconds(),
		})
	}
	return out
}

type questionsRequest struct {
	JobDescription string `json:"jobDescription"`
	Resume         string `json:"resume"`
	Phase          string `json:"phase"`
}

type questionsResponse struct {
	Questions []wireQuestion `json:"questions"`
}

// GenerateQuestions fetches the question batch of a phase.
func (c *Client) GenerateQuestions(ctx context.Context, req ports.QuestionsRequest) ([]domain.Question, error) {
	var resp questionsResponse
	err := c.post(ctx, EndpointQuestions, questionsRequest{
		JobDescription: req.JobDescription,
		Resume:         req.Resume,
		Phase:          string(req.Phase),
	}, &resp)
	if err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0, len(resp.Questions))
	maxID := 0
	for _, wq := range resp.Questions {
		text := strings.TrimSpace(wq.Text)
		if text == "" {
			text = strings.TrimSpace(wq.Question)
		}
		if text == "" {
			continue
		}
		category := domain.Category(strings.ToLower(strings.TrimSpace(wq.Category)))
		if !category.Valid() {
			category = domain.CategoryFor(req.Phase)
		}
		id := wq.ID
		if id <= 0 {
			id = maxID + 1
		}
		maxID = max(maxID, id)
		questions = append(questions, domain.Question{ID: id, Text: text, Category: category})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%s: %w", EndpointQuestions, ErrEmptyResponse)
	}
	return questions, nil
}

type nextQuestionRequest struct {
	JobDescription string         `json:"jobDescription"`
	Resume         string         `json:"resume"`
	Responses      []wireResponse `json:"responses"`
	CurrentPhase   string         `json:"currentPhase"`
	QuestionCount  int            `json:"questionCount"`
}

type nextQuestionResponse struct {
	Question string `json:"question"`
}

// GenerateNextQuestion asks for one continuation question.
func (c *Client) GenerateNextQuestion(ctx context.Context, req ports.NextQuestionRequest) (string, error) {
	var resp nextQuestionResponse
	err := c.post(ctx, EndpointNextQuestion, nextQuestionRequest{
		JobDescription: req.JobDescription,
		Resume:         req.Resume,
		Responses:      toWireResponses(req.Responses),
		CurrentPhase:   string(req.CurrentPhase),
		QuestionCount:  req.QuestionCount,
	}, &resp)
	if err != nil {
		return "", err
	}
	question := strings.TrimSpace(resp.Question)
	if question == "" {
		return "", fmt.Errorf("%s: %w", EndpointNextQuestion, ErrEmptyResponse)
	}
	return question, nil
}

type feedbackRequest struct {
	Responses      []wireResponse `json:"responses"`
	JobDescription string         `json:"jobDescription"`
	Resume         string         `json:"resume"`
}

// GenerateFeedback asks for the evaluation of the collected answers.
func (c *Client) GenerateFeedback(ctx context.Context, req ports.FeedbackRequest) (domain.Feedback, error) {
	var resp domain.Feedback
	err := c.post(ctx, EndpointFeedback, feedbackRequest{
		Responses:      toWireResponses(req.Responses),
		JobDescription: req.JobDescription,
		Resume:         req.Resume,
	}, &resp)
	if err != nil {
		return domain.Feedback{}, err
	}
	if len(resp.Strengths) == 0 && len(resp.Improvements) == 0 && len(resp.DetailedFeedback) == 0 && resp.OverallScore == 0 {
		return domain.Feedback{}, fmt.Errorf("%s: %w", EndpointFeedback, ErrEmptyResponse)
	}
	resp.OverallScore = clamp(resp.OverallScore, 0, 100)
	for i := range resp.DetailedFeedback {
		resp.DetailedFeedback[i].Score = clamp(resp.DetailedFeedback[i].Score, 0, 10)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) (err error) {
	started := time.Now()
	status := "error"
	defer func() {
		if c.metrics != nil {
			c.metrics.RemoteRequest(endpoint, status, time.Since(started))
		}
		if err != nil {
			c.logger.Debug("remote request failed", "endpoint", endpoint, "error", err)
		}
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", endpoint, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)), 256)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s: %w", endpoint, ErrEmptyResponse)
	}
	if err := unmarshalJSON(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// unmarshalJSON decodes data into v, repairing malformed JSON once before
// giving up.
func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return fmt.Errorf("%w (repair failed: %v)", err, repairErr)
	}
	return json.Unmarshal([]byte(fixed), v)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
