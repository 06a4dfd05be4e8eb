package gcpsm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

// Source reads key material from a GCP Secret Manager secret version, named
// projects/<project>/secrets/<secret>/versions/<version>.
type Source struct {
	svc  *secretmanager.Service
	name string
}

func NewSource(ctx context.Context, name string, opts ...option.ClientOption) (*Source, error) {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "projects/") {
		return nil, fmt.Errorf("invalid secret version name %q", name)
	}
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}
	svc, err := secretmanager.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secretmanager.NewService: %w", err)
	}
	return &Source{svc: svc, name: name}, nil
}

func (s *Source) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.svc.Projects.Secrets.Versions.Access(s.name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("access secret version: %w", err)
	}
	if resp.Payload == nil || resp.Payload.Data == "" {
		return nil, errors.New("secret payload is empty")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return nil, fmt.Errorf("decode secret payload: %w", err)
	}
	return data, nil
}

func (s *Source) String() string {
	return "gcpsm:" + s.name
}
