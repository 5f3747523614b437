package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App  AppConfig
	JWT  JWTConfig
	HTTP HTTPConfig
	PAC  PACConfig
}

// PACConfig configuración del proveedor autorizado de certificación (timbrado CFDI).
type PACConfig struct {
	Provider   string // "finkok" | "sw" — adaptador seleccionado al arranque
	Env        string // "test" | "prod" — selecciona endpoints de pruebas o producción
	User       string // usuario/cuenta ante el PAC
	Password   string // secreto ante el PAC
	EmitterRFC string // RFC del emisor registrado ante el PAC
	// Overrides de URL para tests de integración contra un servidor local.
	// Vacíos en operación normal: cada adaptador conoce sus endpoints.
	StampURL  string
	CancelURL string
	AuthURL   string
	BaseURL   string
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// JWTConfig configuración de los tokens de acceso a la API.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate comprueba la configuración mínima para operar contra un PAC real.
func (c PACConfig) Validate() error {
	switch c.Provider {
	case "finkok", "sw":
	default:
		return fmt.Errorf("config: PAC_PROVIDER desconocido %q (usar finkok|sw)", c.Provider)
	}
	switch c.Env {
	case "test", "prod":
	default:
		return fmt.Errorf("config: PAC_ENV desconocido %q (usar test|prod)", c.Env)
	}
	if c.User == "" || c.Password == "" {
		return fmt.Errorf("config: PAC_USER y PAC_PASSWORD son obligatorios")
	}
	return nil
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, HTTP_PORT, JWT_SECRET, PAC_USER, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "facturacion-api"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "facturacion-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		PAC: PACConfig{
			Provider:   getString(v, "PAC_PROVIDER", "finkok"),
			Env:        getString(v, "PAC_ENV", "test"),
			User:       getString(v, "PAC_USER", ""),
			Password:   getString(v, "PAC_PASSWORD", ""),
			EmitterRFC: getString(v, "PAC_EMITTER_RFC", ""),
			StampURL:   getString(v, "PAC_STAMP_URL", ""),
			CancelURL:  getString(v, "PAC_CANCEL_URL", ""),
			AuthURL:    getString(v, "PAC_AUTH_URL", ""),
			BaseURL:    getString(v, "PAC_BASE_URL", ""),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
