package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/sirupsen/logrus"
)

// Compile-time interface check.
var _ Backend = (*s3Backend)(nil)

type s3Backend struct {
	log      logrus.FieldLogger
	endpoint string
	bucket   string
	baseURL  string
	signer   *signer
	client   *http.Client
}

// NewS3Backend creates a Backend that talks to an S3-compatible endpoint
// over plain HTTP with per-request SigV4 signing and path-style addressing.
// The timeout bounds connection setup; per-operation deadlines come from
// the caller's context.
func NewS3Backend(log logrus.FieldLogger, provider *config.ProviderConfig, timeout time.Duration) Backend {
	endpoint := strings.TrimRight(provider.Endpoint, "/")

	transport := &http.Transport{
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
	}

	return &s3Backend{
		log:      log.WithField("component", "s3_backend"),
		endpoint: endpoint,
		bucket:   provider.Bucket,
		baseURL:  endpoint + "/" + provider.Bucket,
		signer:   newSigner(provider.AccessKey, provider.SecretKey, provider.Region),
		client: &http.Client{
			Transport: transport,
			// Redirects would re-send signed requests to a different
			// host, invalidating the signature. Surface them instead.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Name returns a human-readable description of the backend.
func (b *s3Backend) Name() string {
	return fmt.Sprintf("s3 bucket %q at %s", b.bucket, b.endpoint)
}

// Validate checks that the bucket exists and is reachable.
func (b *s3Backend) Validate(ctx context.Context) error {
	resp, err := b.do(ctx, http.MethodHead, b.baseURL, nil, "")
	if err != nil {
		return err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return &Error{
			Kind: KindNotFound,
			Err:  fmt.Errorf("bucket %q does not exist", b.bucket),
		}
	case isRedirect(resp.StatusCode):
		return &Error{
			Kind: KindOther,
			Err: fmt.Errorf(
				"endpoint returned redirect (%d) to %q: check endpoint and bucket configuration",
				resp.StatusCode, resp.Header.Get("Location"),
			),
		}
	default:
		return b.statusError(resp, "")
	}
}

// Put writes the payload under key, timing only the request round trip.
func (b *s3Backend) Put(ctx context.Context, key string, data []byte) (time.Duration, error) {
	start := time.Now()

	resp, err := b.do(ctx, http.MethodPut, b.objectURL(key), data, key)
	if err != nil {
		return 0, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, b.statusError(resp, key)
	}

	return time.Since(start), nil
}

// Get reads the object under key, timing request plus body download.
func (b *s3Backend) Get(ctx context.Context, key string) ([]byte, time.Duration, error) {
	start := time.Now()

	resp, err := b.do(ctx, http.MethodGet, b.objectURL(key), nil, key)
	if err != nil {
		return nil, 0, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, 0, b.statusError(resp, key)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, b.transportError(err, key)
	}

	return data, time.Since(start), nil
}

// Delete removes the object under key. A missing key is not an error.
func (b *s3Backend) Delete(ctx context.Context, key string) error {
	resp, err := b.do(ctx, http.MethodDelete, b.objectURL(key), nil, key)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return b.statusError(resp, key)
	}
}

// listResult is the subset of the ListObjectsV2 response we consume.
type listResult struct {
	XMLName               xml.Name `xml:"ListBucketResult"`
	IsTruncated           bool     `xml:"IsTruncated"`
	NextContinuationToken string   `xml:"NextContinuationToken"`
	Contents              []struct {
		Key string `xml:"Key"`
	} `xml:"Contents"`
}

// List returns all keys with the given prefix, following continuation
// tokens across pages.
func (b *s3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys              []string
		continuationToken string
	)

	for {
		params := url.Values{}
		params.Set("list-type", "2")
		params.Set("prefix", prefix)

		if continuationToken != "" {
			params.Set("continuation-token", continuationToken)
		}

		resp, err := b.do(ctx, http.MethodGet, b.baseURL+"?"+params.Encode(), nil, "")
		if err != nil {
			return nil, err
		}

		body, readErr := io.ReadAll(resp.Body)

		drain(resp)

		if readErr != nil {
			return nil, b.transportError(readErr, "")
		}

		if resp.StatusCode != http.StatusOK {
			return nil, &Error{
				Kind: kindForStatus(resp.StatusCode),
				Err:  fmt.Errorf("list returned status %d", resp.StatusCode),
			}
		}

		var result listResult
		if err := xml.Unmarshal(body, &result); err != nil {
			return nil, &Error{Kind: KindOther, Err: fmt.Errorf("parsing list response: %w", err)}
		}

		for _, c := range result.Contents {
			keys = append(keys, c.Key)
		}

		if !result.IsTruncated || result.NextContinuationToken == "" {
			return keys, nil
		}

		continuationToken = result.NextContinuationToken
	}
}

func (b *s3Backend) objectURL(key string) string {
	return b.baseURL + "/" + key
}

// do builds, signs, and executes a single request. No retries happen here.
func (b *s3Backend) do(ctx context.Context, method, rawURL string, body []byte, key string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, &Error{Kind: KindOther, Key: key, Err: fmt.Errorf("creating request: %w", err)}
	}

	payloadHash := emptyPayloadHash

	if body != nil {
		sum := sha256.Sum256(body)
		payloadHash = hex.EncodeToString(sum[:])

		req.ContentLength = int64(len(body))
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	b.signer.sign(req, payloadHash, time.Now())

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, b.transportError(err, key)
	}

	return resp, nil
}

// transportError classifies connection-level failures.
func (b *s3Backend) transportError(err error, key string) error {
	kind := KindNetwork

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}

	return &Error{Kind: kind, Key: key, Err: err}
}

// statusError classifies unexpected HTTP status codes.
func (b *s3Backend) statusError(resp *http.Response, key string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	return &Error{
		Kind: kindForStatus(resp.StatusCode),
		Key:  key,
		Err:  fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
	}
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status >= 500:
		return KindNetwork
	default:
		return KindOther
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
