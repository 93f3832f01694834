package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"media-ops/domain/model"
	"media-ops/domain/repository"
	"media-ops/infrastructure/logger"

	"google.golang.org/api/googleapi"
	youtube "google.golang.org/api/youtube/v3"
)

const defaultUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"

// Config tunes the resumable transfer loop.
type Config struct {
	// UploadURL is the initiation endpoint; tests point it at a local server.
	UploadURL string
	// ChunkSize must be a multiple of 256 KiB per the resumable protocol.
	ChunkSize int64
	// MaxAttempts bounds retries of a single chunk on transient failures.
	MaxAttempts int
	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration
	// ChunkTimeout bounds each chunk call. A timeout is a transient failure.
	ChunkTimeout time.Duration
}

// ResumableClient performs the chunked resumable upload protocol against
// YouTube: one initiation call negotiates a session URL, then the payload is
// sent in byte-addressed chunks. Re-sending a chunk range is idempotent, so
// transient failures retry the same range in place.
type ResumableClient struct {
	creds       repository.ICredentials
	httpClient  *http.Client
	uploadURL   string
	chunkSize   int64
	maxAttempts int
	backoffBase time.Duration
	timeout     time.Duration
}

// NewResumableClient creates a transfer client over the given credentials.
func NewResumableClient(creds repository.ICredentials, cfg *Config) *ResumableClient {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &ResumableClient{
		creds:       creds,
		httpClient:  &http.Client{},
		uploadURL:   cfg.UploadURL,
		chunkSize:   cfg.ChunkSize,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		timeout:     cfg.ChunkTimeout,
	}
	if c.uploadURL == "" {
		c.uploadURL = defaultUploadURL
	}
	if c.chunkSize == 0 {
		c.chunkSize = 8 << 20
	}
	if c.maxAttempts == 0 {
		c.maxAttempts = 4
	}
	if c.backoffBase == 0 {
		c.backoffBase = 500 * time.Millisecond
	}
	if c.timeout == 0 {
		c.timeout = 2 * time.Minute
	}
	return c
}

// Transfer streams in.Source to the platform and returns the assigned video
// id. Errors wrap the model sentinels so callers can classify them.
func (c *ResumableClient) Transfer(ctx context.Context, in *repository.TransferInput) (string, error) {
	tok, err := c.creds.Token(ctx)
	if err != nil {
		return "", err
	}

	sessionURL, err := c.initiate(ctx, tok.AccessToken, in)
	if err != nil {
		return "", err
	}

	lg := logger.GetLogger().WithField("sessionId", in.SessionID)
	sent := in.Offset
	buf := make([]byte, c.chunkSize)
	for sent < in.Size {
		if in.Cancelled != nil && in.Cancelled() {
			c.abort(ctx, sessionURL)
			return "", fmt.Errorf("transfer of session %s: %w", in.SessionID, model.ErrCancelled)
		}

		n, err := io.ReadFull(in.Source, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			// Final, short chunk.
		} else if err != nil {
			return "", fmt.Errorf("failed to read source at offset %d: %w", sent, err)
		}
		if n == 0 {
			return "", fmt.Errorf("source ended at %d of %d bytes: %w", sent, in.Size, model.ErrTransient)
		}

		resultID, newSent, err := c.sendChunk(ctx, sessionURL, buf[:n], sent, in)
		if err != nil {
			return "", err
		}
		if resultID != "" {
			if in.OnProgress != nil {
				in.OnProgress(in.Size, in.Size)
			}
			return resultID, nil
		}
		sent = newSent
		if in.OnProgress != nil {
			in.OnProgress(sent, in.Size)
		}
		lg.WithField("bytesSent", sent).WithField("bytesTotal", in.Size).Debug("Chunk accepted")
	}
	return "", fmt.Errorf("upload session ended without a final response: %w", model.ErrTransient)
}

// initiate performs the one-time negotiation call and returns the
// session-specific upload URL.
func (c *ResumableClient) initiate(ctx context.Context, accessToken string, in *repository.TransferInput) (string, error) {
	meta := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       in.Metadata.Title,
			Description: in.Metadata.Description,
			Tags:        in.Metadata.Tags,
			CategoryId:  in.Metadata.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: in.Metadata.Privacy,
		},
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode upload metadata: %w", err)
	}

	url := c.uploadURL + "?uploadType=resumable&part=snippet,status"
	for attempt := 1; ; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			cancel()
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
		req.Header.Set("X-Upload-Content-Type", "video/*")
		req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(in.Size, 10))

		resp, err := c.httpClient.Do(req)
		cancel()
		if err != nil {
			if attempt >= c.maxAttempts {
				return "", fmt.Errorf("failed to initiate upload: %v: %w", err, model.ErrTransient)
			}
			c.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			loc := resp.Header.Get("Location")
			drain(resp)
			if loc == "" {
				return "", fmt.Errorf("initiation response missing session URL: %w", model.ErrTransient)
			}
			return loc, nil
		}
		classified := c.classify(resp)
		drain(resp)
		if errors.Is(classified, model.ErrTransient) && attempt < c.maxAttempts {
			c.sleep(ctx, attempt)
			continue
		}
		return "", fmt.Errorf("failed to initiate upload: %w", classified)
	}
}

// sendChunk uploads one byte range, retrying the same range on transient
// failures and refreshing the credential once on a 401. On the final chunk
// it returns the platform-assigned video id.
func (c *ResumableClient) sendChunk(ctx context.Context, sessionURL string, chunk []byte, offset int64, in *repository.TransferInput) (resultID string, newSent int64, err error) {
	last := offset + int64(len(chunk)) - 1
	contentRange := fmt.Sprintf("bytes %d-%d/%d", offset, last, in.Size)
	refreshed := false

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if in.OnAttempt != nil && attempt > 1 {
			in.OnAttempt()
		}
		tok, tokErr := c.creds.Token(ctx)
		if tokErr != nil {
			return "", 0, tokErr
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		req, reqErr := http.NewRequestWithContext(reqCtx, http.MethodPut, sessionURL, bytes.NewReader(chunk))
		if reqErr != nil {
			cancel()
			return "", 0, reqErr
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		req.Header.Set("Content-Range", contentRange)
		req.ContentLength = int64(len(chunk))

		resp, doErr := c.httpClient.Do(req)
		cancel()
		if doErr != nil {
			if ctx.Err() != nil {
				return "", 0, fmt.Errorf("chunk %s aborted: %w", contentRange, model.ErrCancelled)
			}
			if attempt >= c.maxAttempts {
				return "", 0, fmt.Errorf("chunk %s failed after %d attempts: %v: %w", contentRange, attempt, doErr, model.ErrTransient)
			}
			c.sleep(ctx, attempt)
			continue
		}

		switch {
		case resp.StatusCode == statusResumeIncomplete:
			sent := parseRangeEnd(resp.Header.Get("Range"), last+1)
			drain(resp)
			if sent != last+1 {
				// The source reader is sequential and cannot rewind to a
				// partially accepted range.
				return "", 0, fmt.Errorf("platform acknowledged %d bytes of chunk %s: %w", sent, contentRange, model.ErrTransient)
			}
			return "", sent, nil

		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			var v youtube.Video
			decodeErr := json.NewDecoder(resp.Body).Decode(&v)
			drain(resp)
			if decodeErr != nil || v.Id == "" {
				return "", 0, fmt.Errorf("could not parse final upload response: %w", model.ErrTransient)
			}
			return v.Id, in.Size, nil

		case resp.StatusCode == http.StatusUnauthorized:
			drain(resp)
			if refreshed {
				return "", 0, fmt.Errorf("chunk %s rejected after credential refresh: %w", contentRange,
					&model.AuthRequiredError{AuthURL: c.creds.AuthURL("re-auth")})
			}
			// Invalidate and retry the same chunk once with a fresh token.
			refreshed = true
			c.creds.Invalidate()
			attempt--
			continue

		default:
			classified := c.classify(resp)
			drain(resp)
			if errors.Is(classified, model.ErrTransient) && attempt < c.maxAttempts {
				c.sleep(ctx, attempt)
				continue
			}
			return "", 0, fmt.Errorf("chunk %s: %w", contentRange, classified)
		}
	}
	return "", 0, fmt.Errorf("chunk %s exhausted %d attempts: %w", contentRange, c.maxAttempts, model.ErrTransient)
}

// 308 is used by the resumable protocol as "resume incomplete".
const statusResumeIncomplete = 308

// classify maps a non-success response to the error taxonomy. Quota
// rejections are detected through the API's structured error reasons, with
// message inspection only as a fallback for unstructured bodies.
func (c *ResumableClient) classify(resp *http.Response) error {
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("platform returned %d: %w", resp.StatusCode, model.ErrTransient)
	}
	err := googleapi.CheckResponse(resp)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		for _, e := range apiErr.Errors {
			if quotaReasons[e.Reason] {
				return fmt.Errorf("%s: %w", e.Reason, model.ErrQuotaExceeded)
			}
		}
		if resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(apiErr.Message), "quota") {
			return fmt.Errorf("%s: %w", apiErr.Message, model.ErrQuotaExceeded)
		}
		return fmt.Errorf("platform rejected request: %w", apiErr)
	}
	if err != nil {
		return fmt.Errorf("platform returned %d: %v", resp.StatusCode, err)
	}
	return fmt.Errorf("platform returned unexpected status %d", resp.StatusCode)
}

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"uploadLimitExceeded":   true,
}

// abort tells the platform to drop the upload session, best effort.
func (c *ResumableClient) abort(ctx context.Context, sessionURL string) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodDelete, sessionURL, nil)
	if err != nil {
		return
	}
	if resp, err := c.httpClient.Do(req); err == nil {
		drain(resp)
	}
}

func (c *ResumableClient) sleep(ctx context.Context, attempt int) {
	d := c.backoffBase << (attempt - 1)
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// parseRangeEnd extracts the next offset from a 308 Range header of the
// form "bytes=0-12345". fallback is used when the header is absent.
func parseRangeEnd(header string, fallback int64) int64 {
	if header == "" {
		return fallback
	}
	idx := strings.LastIndex(header, "-")
	if idx == -1 {
		return fallback
	}
	end, err := strconv.ParseInt(header[idx+1:], 10, 64)
	if err != nil {
		return fallback
	}
	return end + 1
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
