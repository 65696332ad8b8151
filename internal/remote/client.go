// Package remote is the HTTP client for the question and scoring service.
//
// Every endpoint answers with a JSON envelope carrying a "success" flag and,
// on failure, an "error" message. A false flag or a non-2xx status becomes an
// *APIError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fakeyudi/intervbot/internal/validator"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// APIError reports a request the service rejected or could not serve.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
}

// Client talks to one service instance.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New returns a Client for baseURL. A non-positive timeout disables the
// per-request client timeout; callers then rely on context deadlines.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout < 0 {
		timeout = 0
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "remote").Logger(),
	}
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// StartInterview opens a remotely graded interview session.
func (c *Client) StartInterview(ctx context.Context, req StartInterviewRequest) (*StartInterviewResponse, error) {
	const op = "start_interview"
	if err := validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var resp StartInterviewResponse
	if err := c.do(ctx, op, http.MethodPost, "/api/start_interview", req, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, &APIError{Op: op, Message: "response carried no session_id"}
	}
	return &resp, nil
}

// SubmitAnswer sends the answer for the session's current question.
func (c *Client) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	const op = "submit_answer"
	if err := validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var resp SubmitAnswerResponse
	if err := c.do(ctx, op, http.MethodPost, "/api/submit_answer", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EndSession tells the service the session was abandoned. Callers treat it
// as a notification; the returned error is only worth logging.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return c.do(ctx, "end_session", http.MethodDelete, "/api/end_session/"+url.PathEscape(sessionID), nil, nil)
}

// Questions draws a quiz question set.
func (c *Client) Questions(ctx context.Context, q QuestionsQuery) (*QuestionsResponse, error) {
	v := url.Values{}
	if q.Role != "" {
		v.Set("role", q.Role)
	}
	if q.Difficulty != "" {
		v.Set("difficulty", q.Difficulty)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/api/questions"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var resp QuestionsResponse
	if err := c.do(ctx, "questions", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Dataset fetches the raw static question set served at /questions.json.
func (c *Client) Dataset(ctx context.Context) ([]byte, error) {
	const op = "questions.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/questions.json", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}
	return body, nil
}

// SaveQuizResult persists a finished quiz.
func (c *Client) SaveQuizResult(ctx context.Context, res QuizResult) error {
	const op = "save_quiz_result"
	if err := validator.Struct(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPost, "/api/save_quiz_result", res, nil)
}

type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshaling request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", op, err)
	}
	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request finished")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}

func errorMessage(body []byte, status int) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return http.StatusText(status)
}
