package sw

import (
	"context"
	"sync"
	"time"
)

// renewalMargin margen de seguridad de la renovación: el token se renueva
// cuando le queda menos de este margen de vida. Es deliberadamente grande
// respecto a la vida total (~2 h) para absorber clock skew y la latencia de
// la llamada en vuelo: nunca se usa una credencial al borde de expirar.
const renewalMargin = 30 * time.Minute

// defaultTokenLifetime vida asumida cuando el PAC no informa expiración.
const defaultTokenLifetime = 2 * time.Hour

// credential token vivo con sus tiempos. Nunca se usa pasada su expiración.
type credential struct {
	token     string
	issuedAt  time.Time
	expiresAt time.Time
}

// authFunc obtiene una credencial nueva ante el PAC.
type authFunc func(ctx context.Context) (credential, error)

// tokenCache mantiene a lo sumo una credencial viva por instancia del
// adaptador. La renovación se serializa con el mutex: los llamadores
// concurrentes que encuentren el token vencido esperan una única renovación
// en vez de disparar emisiones redundantes, y toda lectura posterior observa
// el token nuevo.
//
// El cache pertenece al adaptador, no al proceso: dos adaptadores (p. ej.
// producción y sandbox) jamás comparten credencial.
type tokenCache struct {
	mu           sync.Mutex
	cred         credential
	authenticate authFunc
	now          func() time.Time // inyectable en tests
}

func newTokenCache(authenticate authFunc) *tokenCache {
	return &tokenCache{
		authenticate: authenticate,
		now:          time.Now,
	}
}

// getToken devuelve el token vigente, renovándolo primero si está ausente o
// dentro del margen de seguridad de su expiración.
func (c *tokenCache) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cred.token != "" && c.now().Add(renewalMargin).Before(c.cred.expiresAt) {
		return c.cred.token, nil
	}

	cred, err := c.authenticate(ctx)
	if err != nil {
		return "", err
	}
	c.cred = cred
	return cred.token, nil
}

// invalidate descarta la credencial cacheada (p. ej. tras un 401 del PAC,
// señal de que expiró antes de lo calculado).
func (c *tokenCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = credential{}
}
