package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/Mnabil10/fasketfornt-sub000/internal/storage"
	apperrors "github.com/Mnabil10/fasketfornt-sub000/pkg/errors"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/httpclient"
)

// Config holds the backend transport configuration. The bearer token is
// injected here rather than read from ambient state, so the credential
// path stays explicit.
type Config struct {
	BaseURL    string
	SignPath   string
	UploadPath string
	Token      string
	Timeout    time.Duration
}

// signResponse mirrors the backend's signed-target reply. A null or empty
// uploadUrl means the backend declined to issue a direct-write target.
type signResponse struct {
	UploadURL string   `json:"uploadUrl"`
	PublicURL string   `json:"publicUrl"`
	Driver    string   `json:"driver,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// proxyResponse mirrors the backend's proxied-upload reply.
type proxyResponse struct {
	URL      string   `json:"url"`
	Warnings []string `json:"warnings,omitempty"`
}

// Store implements storage.Store against the platform backend with a
// tiered transport: a signed direct write when the backend offers one,
// falling back to a proxied multipart upload through the backend itself.
// Direct-tier failures only select the fallback; proxy-tier failures are
// the terminal failure of the upload.
type Store struct {
	cfg      Config
	sign     *httpclient.CircuitBreakerClient
	transfer *httpclient.Client
	logger   *slog.Logger
}

// NewStore builds the tiered transport. Sign requests ride a circuit
// breaker with a single retry so a struggling backend flips uploads onto
// the proxy tier quickly. Transfer requests never retry: a failed body
// write is reported, not replayed.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	signCfg := httpclient.DefaultConfig()
	signCfg.Timeout = cfg.Timeout
	signCfg.MaxRetries = 1

	transferCfg := httpclient.DefaultConfig()
	transferCfg.Timeout = cfg.Timeout
	transferCfg.MaxRetries = 0

	return &Store{
		cfg:      cfg,
		sign:     httpclient.NewCircuitBreakerClient(httpclient.New(signCfg), httpclient.DefaultCircuitBreakerConfig("backend-sign"), logger),
		transfer: httpclient.New(transferCfg),
		logger:   logger,
	}
}

// Upload walks the transport tiers. First success wins.
func (s *Store) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	target, err := s.signTarget(ctx, input.FileName, input.ContentType)
	switch {
	case err != nil:
		directFallbacks.WithLabelValues("sign_error").Inc()
		s.logger.WarnContext(ctx, "signed target unavailable, using proxy upload",
			slog.String("error", err.Error()),
		)
	case target.UploadURL == "" || target.PublicURL == "":
		directFallbacks.WithLabelValues("sign_declined").Inc()
		s.logger.DebugContext(ctx, "backend declined direct upload",
			slog.String("file_name", input.FileName),
		)
	default:
		if err := s.directPut(ctx, target.UploadURL, input); err != nil {
			directFallbacks.WithLabelValues("put_error").Inc()
			s.logger.WarnContext(ctx, "direct upload failed, falling back to proxy",
				slog.String("error", err.Error()),
			)
			break
		}
		driver := target.Driver
		if driver == "" {
			driver = storage.DriverDirect
		}
		return &storage.UploadResult{
			URL:      target.PublicURL,
			Driver:   driver,
			Warnings: target.Warnings,
		}, nil
	}

	return s.proxyUpload(ctx, input)
}

// signTarget asks the backend for a direct-write destination.
func (s *Store) signTarget(ctx context.Context, fileName, contentType string) (*signResponse, error) {
	u, err := url.Parse(s.cfg.BaseURL + s.cfg.SignPath)
	if err != nil {
		return nil, fmt.Errorf("sign url: %w", err)
	}
	q := u.Query()
	q.Set("filename", fileName)
	q.Set("contentType", contentType)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.sign.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, "backend")
	}

	var target signResponse
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return nil, fmt.Errorf("decode signed target: %w", err)
	}
	return &target, nil
}

// directPut writes the payload straight to the signed URL. The URL carries
// its own authorization, so no bearer header is attached.
func (s *Store) directPut(ctx context.Context, uploadURL string, input *storage.UploadInput) error {
	resp, err := s.transfer.Put(ctx, uploadURL, input.ContentType, bytes.NewReader(input.Data))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("direct upload returned status %d", resp.StatusCode)
	}
	return nil
}

// proxyUpload sends the payload through the backend's own upload endpoint
// as a multipart form with field name "file".
func (s *Store) proxyUpload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(input.FileName)))
	h.Set("Content-Type", input.ContentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create multipart body: %w", err)
	}
	if _, err := part.Write(input.Data); err != nil {
		return nil, fmt.Errorf("write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+s.cfg.UploadPath, bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.transfer.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Upstream(fmt.Sprintf("proxy upload failed: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, "backend")
	}

	var out proxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return nil, apperrors.Upstream("backend upload returned no url")
	}

	return &storage.UploadResult{
		URL:      out.URL,
		Driver:   storage.DriverProxied,
		Warnings: out.Warnings,
	}, nil
}

// Ping checks that the backend answers HTTP at all. Any status counts as
// reachable; the readiness probe only cares about connectivity.
func (s *Store) Ping(ctx context.Context) error {
	resp, err := s.transfer.Get(ctx, s.cfg.BaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
