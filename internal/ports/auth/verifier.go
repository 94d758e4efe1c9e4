package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken lo devuelven los verifiers cuando el token no valida.
var ErrInvalidToken = errors.New("invalid token")

// AuthVerifier valida un bearer token y devuelve los claims del usuario.
// Con verifier nil el middleware opera en modo dev (X-Debug-User-ID).
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// VerifierFunc adapta una función a AuthVerifier; útil en tests.
type VerifierFunc func(ctx context.Context, token string) (Claims, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Claims, error) {
	return f(ctx, token)
}
