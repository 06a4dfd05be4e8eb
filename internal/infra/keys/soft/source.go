package soft

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// FileSource reads key material from a local file.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) ([]byte, error) {
	if s.Path == "" {
		return nil, errors.New("key file path is required")
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("key file %s is empty", s.Path)
	}
	return data, nil
}

func (s FileSource) String() string {
	return "file:" + s.Path
}

// EnvSource reads key material (a JWK Set, PEM, or base64/hex seed) from an
// environment variable.
type EnvSource struct {
	Var    string
	lookup func(string) (string, bool)
}

func NewEnvSource(name string) EnvSource {
	return EnvSource{Var: name, lookup: os.LookupEnv}
}

func (s EnvSource) Load(_ context.Context) ([]byte, error) {
	if s.Var == "" {
		return nil, errors.New("key environment variable name is required")
	}
	lookup := s.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value, ok := lookup(s.Var)
	if !ok || value == "" {
		return nil, fmt.Errorf("%s is not set", s.Var)
	}
	return []byte(value), nil
}

func (s EnvSource) String() string {
	return "env:" + s.Var
}
