package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"receiptd/internal/config"
	"receiptd/internal/domain"
	"receiptd/internal/infra/crypto"
)

type stubKeys struct {
	material *domain.KeyMaterial
	err      error
}

func (s stubKeys) Material(context.Context) (*domain.KeyMaterial, error) {
	return s.material, s.err
}

func newMaterial(t *testing.T) *domain.KeyMaterial {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &domain.KeyMaterial{
		Issuer:       "marketplace.example",
		Signing:      &domain.SigningKey{KID: "kid-1", Key: priv},
		Verification: map[string]ed25519.PublicKey{"kid-1": pub},
	}
}

func claims() domain.ReceiptClaims {
	return domain.ReceiptClaims{
		Type:    "purchase-receipt",
		User:    &domain.ReceiptUser{Type: domain.UserTypeDirectedIdentifier, Value: "directed-1"},
		Product: &domain.ReceiptProduct{URL: "https://app.example", StoreData: "id=100"},
		Expiry:  time.Now().Add(time.Hour).Unix(),
	}
}

func TestNewPicksStrategy(t *testing.T) {
	g := NewWithT(t)

	s, err := New(config.Config{SigningMode: config.SigningModeLocal}, stubKeys{})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s).To(BeAssignableToTypeOf(&LocalSigner{}))
	g.Expect(s.Mode()).To(Equal("local"))

	s, err = New(config.Config{SigningMode: config.SigningModeRemote, SigningServerURL: "https://signer.example/sign", SigningTimeout: time.Second}, stubKeys{})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s).To(BeAssignableToTypeOf(&RemoteSigner{}))
	g.Expect(s.Mode()).To(Equal("remote"))

	_, err = New(config.Config{SigningMode: "hsm"}, stubKeys{})
	g.Expect(err).To(HaveOccurred())
}

func TestLocalSigner(t *testing.T) {
	t.Run("signs with the manager key and fills the issuer", func(t *testing.T) {
		g := NewWithT(t)
		material := newMaterial(t)
		token, err := NewLocal(stubKeys{material: material}).Sign(context.Background(), claims())
		g.Expect(err).ToNot(HaveOccurred())

		parsed, err := (&crypto.Service{}).ParseReceipt(token, material)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(parsed.Issuer).To(Equal("marketplace.example"))
		g.Expect(parsed.Product.StoreData).To(Equal("id=100"))
	})

	t.Run("propagates key load errors", func(t *testing.T) {
		g := NewWithT(t)
		loadErr := errors.Join(domain.ErrKeyLoad, errors.New("truncated"))
		_, err := NewLocal(stubKeys{err: loadErr}).Sign(context.Background(), claims())
		g.Expect(errors.Is(err, domain.ErrKeyLoad)).To(BeTrue())
	})

	t.Run("verification-only material cannot sign", func(t *testing.T) {
		g := NewWithT(t)
		material := newMaterial(t)
		material.Signing = nil
		_, err := NewLocal(stubKeys{material: material}).Sign(context.Background(), claims())
		g.Expect(errors.Is(err, domain.ErrKeyLoad)).To(BeTrue())
	})
}

func TestRemoteSigner(t *testing.T) {
	t.Run("passes the returned token through", func(t *testing.T) {
		g := NewWithT(t)
		var got domain.ReceiptClaims
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.Expect(r.Method).To(Equal(http.MethodPost))
			g.Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			_, _ = w.Write([]byte(`{"receipt":"opaque.remote.token"}`))
		}))
		defer srv.Close()

		s, err := NewRemote(srv.URL, srv.Client())
		g.Expect(err).ToNot(HaveOccurred())
		token, err := s.Sign(context.Background(), claims())
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(token).To(Equal("opaque.remote.token"))
		g.Expect(got.User.Value).To(Equal("directed-1"))
	})

	t.Run("non-2xx is a signing error", func(t *testing.T) {
		g := NewWithT(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		s, err := NewRemote(srv.URL, srv.Client())
		g.Expect(err).ToNot(HaveOccurred())
		_, err = s.Sign(context.Background(), claims())
		g.Expect(errors.Is(err, domain.ErrSigning)).To(BeTrue())
	})

	t.Run("timeout is a signing error", func(t *testing.T) {
		g := NewWithT(t)
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		s, err := NewRemote(srv.URL, &http.Client{Timeout: 50 * time.Millisecond})
		g.Expect(err).ToNot(HaveOccurred())
		_, err = s.Sign(context.Background(), claims())
		g.Expect(errors.Is(err, domain.ErrSigning)).To(BeTrue())
	})

	t.Run("empty or undecodable response is a signing error", func(t *testing.T) {
		g := NewWithT(t)
		for _, body := range []string{`{}`, `not json`} {
			body := body
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			s, err := NewRemote(srv.URL, srv.Client())
			g.Expect(err).ToNot(HaveOccurred())
			_, err = s.Sign(context.Background(), claims())
			g.Expect(errors.Is(err, domain.ErrSigning)).To(BeTrue(), body)
			srv.Close()
		}
	})

	t.Run("rejects a bad endpoint", func(t *testing.T) {
		g := NewWithT(t)
		_, err := NewRemote("signer", nil)
		g.Expect(err).To(HaveOccurred())
	})
}
