package auth

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"github.com/kailas-cloud/skinlab/internal/domain"
)

// CloudPlatformScope is the OAuth scope requested for Vertex AI calls.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// serviceAccountKey is the subset of the key file checked before use.
type serviceAccountKey struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// ServiceAccountSource exchanges a signed JWT assertion (issuer = service-account email)
// for an access token.
type ServiceAccountSource struct {
	conf      *jwt.Config
	projectID string
}

// NewServiceAccountSource parses and validates service-account JSON. Any defect is
// reported as domain.ErrInvalidCredentials.
func NewServiceAccountSource(keyJSON []byte, scope, tokenURL string) (*ServiceAccountSource, error) {
	if len(strings.TrimSpace(string(keyJSON))) == 0 {
		return nil, fmt.Errorf("%w: service account JSON is empty", domain.ErrInvalidCredentials)
	}

	var key serviceAccountKey
	if err := json.Unmarshal(keyJSON, &key); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %w", domain.ErrInvalidCredentials, err)
	}
	switch {
	case key.ClientEmail == "":
		return nil, fmt.Errorf("%w: client_email is missing", domain.ErrInvalidCredentials)
	case key.PrivateKey == "":
		return nil, fmt.Errorf("%w: private_key is missing", domain.ErrInvalidCredentials)
	}
	if err := checkPrivateKey(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	}

	if scope == "" {
		scope = CloudPlatformScope
	}
	conf, err := google.JWTConfigFromJSON(keyJSON, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	}
	// Assertions use the library default lifetime of one hour.
	if tokenURL != "" {
		conf.TokenURL = tokenURL
	}

	return &ServiceAccountSource{conf: conf, projectID: key.ProjectID}, nil
}

// ProjectID returns the project named in the key file.
func (s *ServiceAccountSource) ProjectID() string { return s.projectID }

// Email returns the service-account email used as the assertion issuer.
func (s *ServiceAccountSource) Email() string { return s.conf.Email }

// Fetch performs the JWT bearer exchange.
func (s *ServiceAccountSource) Fetch(ctx context.Context) (Token, error) {
	tok, err := s.conf.TokenSource(ctx).Token()
	if err != nil {
		return Token{}, fmt.Errorf("jwt exchange: %w: %w", domain.ErrUpstream, err)
	}
	return Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry}, nil
}

func checkPrivateKey(pemKey string) error {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return fmt.Errorf("private_key is not PEM encoded")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return nil
	}
	if _, err := x509.ParsePKCS1PrivateKey(block.Bytes); err != nil {
		return fmt.Errorf("private_key cannot be parsed: %w", err)
	}
	return nil
}
