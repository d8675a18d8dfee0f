package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Storefront secrets, stored as JSON objects of env-style keys.
const (
	DefaultSecretPrefix = "storefront/"

	SecretDBCredentials = "DB_CREDENTIALS"
	SecretAppSecrets    = "APP_SECRETS"
)

type secretValueAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads the storefront's secrets under one name prefix. Values
// are fetched once per process.
type SecretsClient struct {
	api    secretValueAPI
	prefix string

	mu     sync.Mutex
	values map[string][]byte
}

// NewSecretsClient scopes lookups to prefix, e.g. "storefront/" so that
// SecretDBCredentials resolves to "storefront/DB_CREDENTIALS".
func NewSecretsClient(cfg sdkaws.Config, prefix string) *SecretsClient {
	return newSecretsClient(secretsmanager.NewFromConfig(cfg), prefix)
}

func newSecretsClient(api secretValueAPI, prefix string) *SecretsClient {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &SecretsClient{api: api, prefix: prefix, values: make(map[string][]byte)}
}

// GetSecretJSON decodes the named secret into out.
func (s *SecretsClient) GetSecretJSON(ctx context.Context, name string, out interface{}) error {
	id := s.prefix + name
	raw, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("secret %s is not valid JSON: %w", id, err)
	}
	return nil
}

func (s *SecretsClient) load(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw, ok := s.values[id]; ok {
		return raw, nil
	}

	res, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(id)})
	if err != nil {
		return nil, fmt.Errorf("read secret %s: %w", id, err)
	}
	var raw []byte
	switch {
	case res.SecretString != nil:
		raw = []byte(*res.SecretString)
	case len(res.SecretBinary) > 0:
		raw = res.SecretBinary
	default:
		return nil, fmt.Errorf("secret %s is empty", id)
	}
	s.values[id] = raw
	return raw, nil
}
