package awssm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
)

type Config struct {
	Region   string
	Endpoint string
}

// Source reads key material from an AWS Secrets Manager secret.
type Source struct {
	api      secretsmanageriface.SecretsManagerAPI
	secretID string
}

func NewSource(cfg Config, secretID string) (*Source, error) {
	if secretID == "" {
		return nil, errors.New("aws secret id is required")
	}
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return NewSourceWithAPI(secretsmanager.New(sess), secretID), nil
}

func NewSourceWithAPI(api secretsmanageriface.SecretsManagerAPI, secretID string) *Source {
	return &Source{api: api, secretID: secretID}
}

func (s *Source) Load(ctx context.Context) ([]byte, error) {
	out, err := s.api.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("get secret value: %w", err)
	}
	if out.SecretString != nil && *out.SecretString != "" {
		return []byte(*out.SecretString), nil
	}
	if len(out.SecretBinary) > 0 {
		return out.SecretBinary, nil
	}
	return nil, fmt.Errorf("secret %s has no value", s.secretID)
}

func (s *Source) String() string {
	return "awssm:" + s.secretID
}
