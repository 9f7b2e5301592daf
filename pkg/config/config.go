package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	Tenant  TenantConfig
	Sales   SalesConfig
	Notify  NotifyConfig
	Metrics MetricsConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL (almacén secundario).
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	MinConns    int
	// MaxConnLifetime recicla conexiones; 0 deja el valor del pool.
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// MongoConfig almacén principal de documentos. Las transacciones requieren replica set.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// RedisConfig locks de aprovisionamiento y limitador de solicitudes de ingreso.
// Addr vacío desactiva ambos (se usan implementaciones locales).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// JWTConfig configuración de JWT.
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

// TenantConfig parámetros del aprovisionamiento y de las solicitudes de ingreso.
type TenantConfig struct {
	DefaultStoreName   string
	DefaultPlan        string
	StoreLimit         int
	UserLimit          int
	InvoiceLimit       int
	SecurityCodeLength int
	PhoneRegion        string // región por defecto para números sin prefijo internacional
	VerifyTaxIDDigit   bool
	JoinCooldown       time.Duration
	JoinAttempts       int // intentos por ventana; 0 desactiva el limitador
	JoinWindow         time.Duration
	LockTTL            time.Duration
	StepTimeout        time.Duration
}

// SalesConfig parámetros de caja.
type SalesConfig struct {
	TaxRate       decimal.Decimal
	SalePrefix    string
	InvoicePrefix string
	Timezone      string
	NumberRetries int
}

// NotifyConfig despachador de notificaciones.
type NotifyConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// MetricsConfig exposición de métricas Prometheus.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, MONGO_URI, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return FromViper(v)
}

// FromViper construye la configuración a partir de una instancia ya cargada.
func FromViper(v *viper.Viper) (*Config, error) {
	taxRate, err := decimal.NewFromString(getString(v, "SALES_TAX_RATE", "0.19"))
	if err != nil {
		return nil, fmt.Errorf("config: SALES_TAX_RATE inválido: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "comercio-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL:     getString(v, "DATABASE_URL", ""),
			Host:            getString(v, "DB_HOST", "localhost"),
			Port:            getInt(v, "DB_PORT", 5432),
			User:            getString(v, "DB_USER", "postgres"),
			Password:        getString(v, "DB_PASSWORD", ""),
			DBName:          getString(v, "DB_NAME", "comercio"),
			SSLMode:         getString(v, "DB_SSLMODE", "disable"),
			MaxConns:        getInt(v, "DB_MAX_CONNS", 10),
			MinConns:        getInt(v, "DB_MIN_CONNS", 1),
			MaxConnLifetime: getDuration(v, "DB_MAX_CONN_LIFETIME", time.Hour),
			ConnectTimeout:  getDuration(v, "DB_CONNECT_TIMEOUT", 5*time.Second),
		},
		Mongo: MongoConfig{
			URI:      getString(v, "MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Database: getString(v, "MONGO_DATABASE", "comercio"),
			Timeout:  getDuration(v, "MONGO_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
			Prefix:   getString(v, "REDIS_PREFIX", "comercio"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "comercio-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Tenant: TenantConfig{
			DefaultStoreName:   getString(v, "TENANT_DEFAULT_STORE_NAME", "Tienda principal"),
			DefaultPlan:        getString(v, "TENANT_DEFAULT_PLAN", "BASIC"),
			StoreLimit:         getInt(v, "TENANT_STORE_LIMIT", 3),
			UserLimit:          getInt(v, "TENANT_USER_LIMIT", 10),
			InvoiceLimit:       getInt(v, "TENANT_INVOICE_LIMIT", 500),
			SecurityCodeLength: getInt(v, "TENANT_SECURITY_CODE_LENGTH", 8),
			PhoneRegion:        getString(v, "TENANT_PHONE_REGION", "CO"),
			VerifyTaxIDDigit:   getBool(v, "TENANT_VERIFY_TAX_ID_DIGIT", false),
			JoinCooldown:       getDuration(v, "TENANT_JOIN_COOLDOWN", 24*time.Hour),
			JoinAttempts:       getInt(v, "TENANT_JOIN_ATTEMPTS", 10),
			JoinWindow:         getDuration(v, "TENANT_JOIN_WINDOW", time.Hour),
			LockTTL:            getDuration(v, "TENANT_LOCK_TTL", 30*time.Second),
			StepTimeout:        getDuration(v, "TENANT_STEP_TIMEOUT", 5*time.Second),
		},
		Sales: SalesConfig{
			TaxRate:       taxRate,
			SalePrefix:    getString(v, "SALES_NUMBER_PREFIX", "V"),
			InvoicePrefix: getString(v, "SALES_INVOICE_PREFIX", "F"),
			Timezone:      getString(v, "SALES_TIMEZONE", "America/Bogota"),
			NumberRetries: getInt(v, "SALES_NUMBER_RETRIES", 3),
		},
		Notify: NotifyConfig{
			Workers:   getInt(v, "NOTIFY_WORKERS", 4),
			QueueSize: getInt(v, "NOTIFY_QUEUE_SIZE", 256),
			Timeout:   getDuration(v, "NOTIFY_TIMEOUT", 5*time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: getBool(v, "METRICS_ENABLED", true),
			Path:    getString(v, "METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// Validate revisa la configuración obligatoria antes de abrir conexiones.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET es obligatorio"))
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		errs = append(errs, errors.New("MONGO_URI y MONGO_DATABASE son obligatorios"))
	}
	if c.DB.DatabaseURL == "" && c.DB.Host == "" {
		errs = append(errs, errors.New("DATABASE_URL o DB_HOST es obligatorio"))
	}
	if c.Sales.TaxRate.IsNegative() || c.Sales.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, errors.New("SALES_TAX_RATE debe estar en [0, 1)"))
	}
	if c.Tenant.SecurityCodeLength < 6 {
		errs = append(errs, errors.New("TENANT_SECURITY_CODE_LENGTH debe ser al menos 6"))
	}
	if c.Tenant.StoreLimit < 1 {
		errs = append(errs, errors.New("TENANT_STORE_LIMIT debe ser al menos 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction indica si el entorno es producción.
func (c AppConfig) IsProduction() bool { return c.Env == "production" }

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
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if v.IsSet(key) {
		if d := v.GetDuration(key); d > 0 {
			return d
		}
	}
	return def
}
