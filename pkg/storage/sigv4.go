package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	signingAlgorithm = "AWS4-HMAC-SHA256"
	signingService   = "s3"

	amzDateFormat      = "20060102T150405Z"
	credentialScopeFmt = "20060102"

	// emptyPayloadHash is the SHA-256 of a zero-length body.
	emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// signer computes AWS Signature Version 4 authorization headers using a
// shared-secret HMAC chain. A hand-rolled signer (rather than a vendor SDK)
// keeps the request path compatible with S3-compatible providers that have
// nonstandard checksum or header requirements.
type signer struct {
	accessKey string
	secretKey string
	region    string
}

func newSigner(accessKey, secretKey, region string) *signer {
	if region == "" {
		region = "us-east-1"
	}

	return &signer{
		accessKey: accessKey,
		secretKey: secretKey,
		region:    region,
	}
}

// sign adds X-Amz-Date, X-Amz-Content-Sha256, and Authorization headers to
// the request. payloadHash is the hex SHA-256 of the request body; pass
// emptyPayloadHash for bodyless requests.
func (s *signer) sign(req *http.Request, payloadHash string, now time.Time) {
	amzDate := now.UTC().Format(amzDateFormat)
	dateStamp := now.UTC().Format(credentialScopeFmt)

	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	// Canonical headers, sorted by lowercase name.
	canonicalHeaders := strings.Join([]string{
		"host:" + host,
		"x-amz-content-sha256:" + payloadHash,
		"x-amz-date:" + amzDate,
	}, "\n") + "\n"
	signedHeaders := "host;x-amz-content-sha256;x-amz-date"

	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI(req.URL),
		canonicalQuery(req.URL),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join(
		[]string{dateStamp, s.region, signingService, "aws4_request"}, "/",
	)

	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signature := hex.EncodeToString(
		hmacSHA256(s.signingKey(dateStamp), []byte(stringToSign)),
	)

	req.Header.Set("Authorization", strings.Join([]string{
		signingAlgorithm + " Credential=" + s.accessKey + "/" + scope,
		"SignedHeaders=" + signedHeaders,
		"Signature=" + signature,
	}, ", "))
}

// signingKey derives the per-day signing key via the SigV4 HMAC chain.
func (s *signer) signingKey(dateStamp string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(s.region))
	kService := hmacSHA256(kRegion, []byte(signingService))

	return hmacSHA256(kService, []byte("aws4_request"))
}

// canonicalURI returns the URI-encoded request path. Path segments are
// encoded individually so that '/' separators survive.
func canonicalURI(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		return "/"
	}

	return path
}

// canonicalQuery returns the query string with keys sorted and values
// encoded per RFC 3986 (spaces as %20, not '+').
func canonicalQuery(u *url.URL) string {
	query := u.Query()

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))

	for _, k := range keys {
		values := query[k]
		sort.Strings(values)

		for _, v := range values {
			parts = append(parts, rfc3986Escape(k)+"="+rfc3986Escape(v))
		}
	}

	return strings.Join(parts, "&")
}

func rfc3986Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)

	return mac.Sum(nil)
}
