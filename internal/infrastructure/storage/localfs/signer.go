package localfs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Signer struct {
	baseURL string
	secret  []byte
}

func NewSigner(baseURL, secret string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("storage signing secret is required")
	}
	return &Signer{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
	}, nil
}

func (s *Signer) SignedURL(key string, expiresAt time.Time) (string, error) {
	expires := expiresAt.Unix()
	sig := s.signature(key, expires)

	u := fmt.Sprintf("%s/files/%s?expires=%d&signature=%s",
		s.baseURL, url.PathEscape(key), expires, sig)
	return u, nil
}

func (s *Signer) Verify(key string, expires int64, signature string) error {
	if time.Now().Unix() > expires {
		return fmt.Errorf("signed url expired")
	}
	expected := s.signature(key, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func (s *Signer) signature(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
