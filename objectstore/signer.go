// Package objectstore gera links de download com prazo para objetos privados
// (documentos de verificação de anfitriões).
package objectstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrExpired          = errors.New("objectstore: link expired")
	ErrInvalidSignature = errors.New("objectstore: invalid signature")
)

// DefaultLinkTTL é o prazo padrão dos links.
const DefaultLinkTTL = 15 * time.Minute

type SignedLink struct {
	URL       string
	ExpiresAt time.Time
}

type Signer interface {
	Sign(objectKey string) (SignedLink, error)
}

// HMACSigner assina <bucket>/<key> e a expiração com HMAC-SHA256.
// O link tem a forma <baseURL>/<bucket>/<key>?expires=<unix>&signature=<hex>.
type HMACSigner struct {
	baseURL string
	bucket  string
	key     []byte
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*HMACSigner)

func WithTTL(ttl time.Duration) Option {
	return func(s *HMACSigner) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *HMACSigner) {
		if now != nil {
			s.now = now
		}
	}
}

func NewHMACSigner(baseURL, bucket string, key []byte, opts ...Option) (*HMACSigner, error) {
	if len(key) == 0 {
		return nil, errors.New("objectstore: signing key is required")
	}
	if bucket == "" {
		return nil, errors.New("objectstore: bucket is required")
	}
	s := &HMACSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
		key:     key,
		ttl:     DefaultLinkTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *HMACSigner) Sign(objectKey string) (SignedLink, error) {
	objectKey = strings.TrimLeft(objectKey, "/")
	if objectKey == "" {
		return SignedLink{}, errors.New("objectstore: object key is required")
	}
	exp := s.now().Add(s.ttl).UTC().Truncate(time.Second)

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(exp.Unix(), 10))
	q.Set("signature", s.mac(objectKey, exp.Unix()))

	return SignedLink{
		URL:       fmt.Sprintf("%s/%s/%s?%s", s.baseURL, url.PathEscape(s.bucket), escapeKey(objectKey), q.Encode()),
		ExpiresAt: exp,
	}, nil
}

// Verify confere assinatura e prazo de um link gerado por Sign.
func (s *HMACSigner) Verify(objectKey, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	want := s.mac(strings.TrimLeft(objectKey, "/"), exp)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrInvalidSignature
	}
	if !s.now().Before(time.Unix(exp, 0)) {
		return ErrExpired
	}
	return nil
}

func (s *HMACSigner) mac(objectKey string, exp int64) string {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(s.bucket + "/" + objectKey + "\n" + strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(m.Sum(nil))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
