// Package issuer assigns fresh DIDs. It wraps the keypair primitive with a
// uniqueness check against the identity store, retried a bounded number of
// times. The loop is a correctness safety net: with a cryptographically
// sized identifier space the first attempt wins in practice.
package issuer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"did-registry/internal/registry/models"
	"did-registry/pkg/domain"
	dErrors "did-registry/pkg/domain-errors"
	"did-registry/pkg/platform/sentinel"
)

// Keygen is the external keypair primitive: a fresh keypair plus its derived
// DID, with the private half as PEM.
type Keygen interface {
	Generate() (domain.DID, string, error)
}

// Lookup is the existence check against the identity store.
type Lookup interface {
	Get(ctx context.Context, did domain.DID) (*models.IdentityRecord, error)
}

const defaultMaxAttempts = 5

// Issuer produces DIDs that are unused at the instant of the check. The
// store's insert-only Create closes the remaining check-to-insert window.
type Issuer struct {
	keys        Keygen
	store       Lookup
	maxAttempts int
	timeout     time.Duration
	log         *slog.Logger
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithMaxAttempts bounds the retry-until-unique loop.
func WithMaxAttempts(n int) Option {
	return func(i *Issuer) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

// WithTimeout bounds each key-generation call.
func WithTimeout(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.timeout = d
		}
	}
}

func New(keys Keygen, store Lookup, log *slog.Logger, opts ...Option) *Issuer {
	iss := &Issuer{
		keys:        keys,
		store:       store,
		maxAttempts: defaultMaxAttempts,
		timeout:     5 * time.Second,
		log:         log,
	}
	for _, opt := range opts {
		opt(iss)
	}
	return iss
}

// Issue returns a DID not present in the store at check time, together with
// the matching private key PEM. Exhausting the attempt budget is treated as
// the key-generation primitive being unavailable.
func (i *Issuer) Issue(ctx context.Context) (domain.DID, string, error) {
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		did, privPEM, err := i.generate(ctx)
		if err != nil {
			return "", "", dErrors.WrapKind(err, dErrors.KindKeyGenUnavailable, "key generation failed")
		}

		_, err = i.store.Get(ctx, did)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return did, privPEM, nil
		case err == nil:
			// Collision: discard and regenerate.
			i.log.Warn("issued DID already registered, regenerating",
				"did", did, "attempt", attempt)
		default:
			return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "uniqueness check failed")
		}
	}
	return "", "", dErrors.NewKind(dErrors.KindKeyGenUnavailable,
		"could not issue a unique DID within the attempt budget")
}

// generate runs the keypair primitive under the configured timeout so a
// wedged primitive cannot block a registration indefinitely.
func (i *Issuer) generate(ctx context.Context) (domain.DID, string, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	type result struct {
		did domain.DID
		pem string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		did, pem, err := i.keys.Generate()
		ch <- result{did, pem, err}
	}()

	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case r := <-ch:
		return r.did, r.pem, r.err
	}
}
