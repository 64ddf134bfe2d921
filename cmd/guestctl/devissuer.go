package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marigold-events/wedding-rsvp-api/internal/platform/auth/jwks_testutil"
)

// devIssuer is a tiny RS256 issuer with a JWKS endpoint for local AUTH_MODE=jwt.
// It is not an OIDC provider.
type devIssuer struct {
	key      jwks_testutil.Keypair
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	jwks     []byte
}

func newDevIssuer(kid, issuer, audience string, ttl time.Duration) (*devIssuer, error) {
	kp, err := jwks_testutil.GenerateRSAKeypair(kid)
	if err != nil {
		return nil, err
	}
	set, err := marshalJWKS(kp)
	if err != nil {
		return nil, err
	}
	return &devIssuer{key: kp, issuer: issuer, audience: audience, ttl: ttl, now: time.Now, jwks: set}, nil
}

func (d *devIssuer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(d.jwks)
	})
	// GET /token?sub=dev|alice&email=alice@example.com
	mux.HandleFunc("/token", d.mint)
	return mux
}

func (d *devIssuer) mint(w http.ResponseWriter, r *http.Request) {
	sub := strings.TrimSpace(r.URL.Query().Get("sub"))
	if sub == "" {
		http.Error(w, "missing sub", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))

	now := d.now().UTC()
	extra := map[string]any{"nbf": now.Add(-5 * time.Second).Unix()}
	if email != "" {
		extra["email"] = email
	}
	token, err := jwks_testutil.MintRS256JWTWithClaims(d.key, d.issuer, d.audience, sub, now, d.ttl, extra)
	if err != nil {
		log.Error().Err(err).Str("sub", sub).Msg("mint token")
		http.Error(w, "failed to mint token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token": token,
		"sub":   sub,
		"email": email,
		"iss":   d.issuer,
		"aud":   d.audience,
		"exp":   now.Add(d.ttl).Unix(),
	})
}

func marshalJWKS(kp jwks_testutil.Keypair) ([]byte, error) {
	enc := base64.RawURLEncoding
	pub := kp.Private.PublicKey
	type jwk struct {
		Kty string `json:"kty"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	return json.Marshal(struct {
		Keys []jwk `json:"keys"`
	}{Keys: []jwk{{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kp.Kid,
		N:   enc.EncodeToString(pub.N.Bytes()),
		E:   enc.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}})
}

func newDevIssuerCmd() *cobra.Command {
	var (
		addr     string
		issuer   string
		audience string
		kid      string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "dev-issuer",
		Short: "Run a local JWT issuer and JWKS endpoint for AUTH_MODE=jwt",
		Long: `Serves /.well-known/jwks.json and /token?sub=...&email=... so the API can be
run against real RS256 verification locally. Point JWT_ISSUER, JWT_AUDIENCE
and JWT_JWKS_URL at this process. Keys are regenerated on every start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			iss, err := newDevIssuer(kid, issuer, audience, ttl)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           iss.routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info().
				Str("addr", addr).
				Str("iss", issuer).
				Str("aud", audience).
				Str("kid", kid).
				Dur("ttl", ttl).
				Msg("dev issuer listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", envOr("DEV_ISSUER_ADDR", ":5556"), "listen address")
	f.StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "http://localhost:5556"), "iss claim")
	f.StringVar(&audience, "audience", envOr("JWT_AUDIENCE", "wedding-rsvp"), "aud claim")
	f.StringVar(&kid, "kid", "dev-kid-1", "key id")
	f.DurationVar(&ttl, "ttl", 30*time.Minute, "token lifetime")
	return cmd
}
