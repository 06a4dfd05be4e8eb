package keys

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"receiptd/internal/domain"
	"receiptd/internal/logging"
)

const defaultLoadTimeout = 30 * time.Second

// Source fetches raw key material from wherever it is kept.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
	// String describes the source for logs; it must not reveal secrets.
	String() string
}

// Manager loads key material once and serves the cached result for the life
// of the process. A failed load is cached too: broken keys keep issuance and
// verification disabled until the process is restarted with working material.
type Manager struct {
	source      Source
	issuer      string
	loadTimeout time.Duration
	logger      *slog.Logger
	onFailure   func(error)

	once     sync.Once
	material *domain.KeyMaterial
	err      error
}

type Option func(*Manager)

// WithIssuer overrides the issuer carried by the key material.
func WithIssuer(issuer string) Option {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithFailureHook is called once when loading fails.
func WithFailureHook(fn func(error)) Option {
	return func(m *Manager) {
		m.onFailure = fn
	}
}

func WithLoadTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.loadTimeout = d
		}
	}
}

func NewManager(source Source, opts ...Option) *Manager {
	m := &Manager{
		source:      source,
		loadTimeout: defaultLoadTimeout,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewStaticManager wraps already parsed material.
func NewStaticManager(material *domain.KeyMaterial) *Manager {
	m := &Manager{logger: logging.Discard()}
	m.once.Do(func() {
		m.material = material
		if material == nil {
			m.err = fmt.Errorf("%w: no key material", domain.ErrKeyLoad)
		}
	})
	return m
}

// Material returns the cached key material, loading it on first use.
// Concurrent first callers wait for the same load. Errors wrap domain.ErrKeyLoad.
func (m *Manager) Material(ctx context.Context) (*domain.KeyMaterial, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: key manager not configured", domain.ErrKeyLoad)
	}
	m.once.Do(func() {
		m.material, m.err = m.load(ctx)
		if m.err != nil {
			m.logger.Error("receipt key material failed to load; issuance and verification are disabled",
				"source", m.sourceName(), "error", m.err)
			if m.onFailure != nil {
				m.onFailure(m.err)
			}
			return
		}
		m.logger.Info("receipt key material loaded",
			"source", m.sourceName(),
			"signing", m.material.Signing != nil,
			"verification_keys", len(m.material.Verification))
	})
	return m.material, m.err
}

func (m *Manager) load(ctx context.Context) (*domain.KeyMaterial, error) {
	if m.source == nil {
		return nil, fmt.Errorf("%w: no key source configured", domain.ErrKeyLoad)
	}
	// The load outlives the request that triggered it; its result is shared.
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.loadTimeout)
	defer cancel()

	raw, err := m.source.Load(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrKeyLoad, m.source, err)
	}
	material, err := ParseMaterial(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrKeyLoad, m.source, err)
	}
	if len(material.Verification) == 0 {
		return nil, fmt.Errorf("%w: %s holds no verification keys", domain.ErrKeyLoad, m.source)
	}
	if m.issuer != "" {
		material.Issuer = m.issuer
	}
	return material, nil
}

func (m *Manager) sourceName() string {
	if m.source == nil {
		return "none"
	}
	return m.source.String()
}
