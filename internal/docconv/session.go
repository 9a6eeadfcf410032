package docconv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// Session is one worker's authenticated handle to the HWP conversion
// service. The first Convert call logs in; the token is reused until Close.
// A Session is never shared across worker processes.
type Session struct {
	endpoint string
	client   *http.Client

	mu    sync.Mutex
	token string
}

func NewSession(endpoint string) *Session {
	return &Session{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// ensureToken authenticates lazily. Must be called with mu held.
func (s *Session) ensureToken(ctx context.Context) error {
	if s.token != "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/session", nil)
	if err != nil {
		return fmt.Errorf("build session request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("open conversion session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("conversion session returned %d", resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode session token: %w", err)
	}
	s.token = payload.Token
	return nil
}

// Convert uploads one document and returns its extracted text.
func (s *Session) Convert(ctx context.Context, filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureToken(ctx); err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/convert", &body)
	if err != nil {
		return "", fmt.Errorf("build convert request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// token expired; next call re-authenticates
		s.token = ""
		return "", fmt.Errorf("conversion session expired")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("convert %s returned %d", filename, resp.StatusCode)
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read converted text: %w", err)
	}
	return string(text), nil
}

// Close releases the session server-side. Best effort.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return
	}

	req, err := http.NewRequest(http.MethodDelete, s.endpoint+"/session", nil)
	if err == nil {
		req.Header.Set("Authorization", "Bearer "+s.token)
		if resp, err := s.client.Do(req); err == nil {
			resp.Body.Close()
		}
	}
	s.token = ""
}
