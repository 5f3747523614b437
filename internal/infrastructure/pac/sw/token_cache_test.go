package sw

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingAuth authFunc que cuenta cuántas veces se emitió credencial.
type countingAuth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *countingAuth) authenticate(_ context.Context) (credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return credential{}, a.err
	}
	now := time.Now()
	return credential{
		token:     "token-vivo",
		issuedAt:  now,
		expiresAt: now.Add(defaultTokenLifetime),
	}, nil
}

func (a *countingAuth) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func TestTokenCache_SinTokenAutenticaUnaVez(t *testing.T) {
	auth := &countingAuth{}
	cache := newTokenCache(auth.authenticate)

	token, err := cache.getToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-vivo", token)
	assert.Equal(t, 1, auth.count(), "token ausente exige exactamente una autenticación")
}

func TestTokenCache_TokenVigenteNoReautentica(t *testing.T) {
	auth := &countingAuth{}
	cache := newTokenCache(auth.authenticate)

	for i := 0; i < 5; i++ {
		_, err := cache.getToken(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, auth.count(), "con token vigente no debe haber autenticaciones extra")
}

func TestTokenCache_RenuevaDentroDelMargen(t *testing.T) {
	auth := &countingAuth{}
	cache := newTokenCache(auth.authenticate)

	_, err := cache.getToken(context.Background())
	require.NoError(t, err)

	// el reloj avanza hasta que al token le queda menos vida que el margen
	cache.now = func() time.Time {
		return time.Now().Add(defaultTokenLifetime - renewalMargin + time.Minute)
	}

	_, err = cache.getToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, auth.count(), "un token dentro del margen de expiración se renueva antes de usarse")
}

func TestTokenCache_FalloDeAutenticacionNoCachea(t *testing.T) {
	auth := &countingAuth{err: errors.New("credenciales inválidas")}
	cache := newTokenCache(auth.authenticate)

	_, err := cache.getToken(context.Background())
	require.Error(t, err)

	auth.err = nil
	token, err := cache.getToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-vivo", token)
	assert.Equal(t, 2, auth.count())
}

func TestTokenCache_InvalidateForzaRenovacion(t *testing.T) {
	auth := &countingAuth{}
	cache := newTokenCache(auth.authenticate)

	_, err := cache.getToken(context.Background())
	require.NoError(t, err)

	cache.invalidate()

	_, err = cache.getToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, auth.count())
}

func TestTokenCache_RenovacionSerializada(t *testing.T) {
	auth := &countingAuth{}
	cache := newTokenCache(auth.authenticate)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.getToken(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, auth.count(),
		"los llamadores concurrentes comparten una única renovación")
}
