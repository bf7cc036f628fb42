package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации сервиса.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Retention RetentionConfig `mapstructure:"retention"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConns       int32         `mapstructure:"max_conns"`
	MinConns       int32         `mapstructure:"min_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ConnectRetries uint          `mapstructure:"connect_retries"`
}

// RedisConfig — кэш статистики и блокировка ретеншн-джоба.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	StatsTTL time.Duration `mapstructure:"stats_ttl"`
}

// AuthConfig содержит пути к RSA ключам и настройки JWT.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	Issuer         string        `mapstructure:"issuer"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	LoginRPS       float64       `mapstructure:"login_rps"`
	LoginBurst     int           `mapstructure:"login_burst"`

	// Публичный POST /createUser может создавать admin/superadmin
	AllowPrivilegedSignup bool `mapstructure:"allow_privileged_signup"`

	PublicKey  []byte
	PrivateKey []byte
}

// AuditConfig управляет захватом событий и асинхронной записью.
type AuditConfig struct {
	BufferSize      int           `mapstructure:"buffer_size"`
	BatchSize       int           `mapstructure:"batch_size"`
	FlushInterval   time.Duration `mapstructure:"flush_interval"`
	IncludeBody     bool          `mapstructure:"include_body"`
	IncludeQuery    bool          `mapstructure:"include_query"`
	ExcludePaths    []string      `mapstructure:"exclude_paths"`
	ExcludeMethods  []string      `mapstructure:"exclude_methods"`
	SensitiveFields []string      `mapstructure:"sensitive_fields"`
}

// RetentionConfig — физическая очистка мягко удаленных событий.
type RetentionConfig struct {
	Days     int           `mapstructure:"days"`
	Interval time.Duration `mapstructure:"interval"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type GRPCConfig struct {
	HealthAddr string `mapstructure:"health_addr"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig собирает конфигурацию из .env, файла и ENV (в порядке возрастания приоритета).
func LoadConfig() (*Config, error) {
	// .env опционален: в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// DATABASE_URL перекроет database.url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Списки из ENV приходят одной строкой через запятую
	cfg.Audit.ExcludePaths = splitList(cfg.Audit.ExcludePaths)
	cfg.Audit.ExcludeMethods = splitList(cfg.Audit.ExcludeMethods)
	cfg.Audit.SensitiveFields = splitList(cfg.Audit.SensitiveFields)

	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url (DATABASE_URL) is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("database.connect_retries", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.stats_ttl", 30*time.Second)

	v.SetDefault("auth.public_key_path", "./configs/keys/public.pem")
	v.SetDefault("auth.private_key_path", "./configs/keys/private.pem")
	v.SetDefault("auth.issuer", "promulher-api")
	v.SetDefault("auth.token_ttl", 5*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.login_rps", 1)
	v.SetDefault("auth.login_burst", 5)
	v.SetDefault("auth.allow_privileged_signup", true)

	v.SetDefault("audit.buffer_size", 10000)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", 500*time.Millisecond)
	v.SetDefault("audit.include_body", false)
	v.SetDefault("audit.include_query", true)
	v.SetDefault("audit.exclude_paths", []string{"/health", "/favicon.ico"})
	v.SetDefault("audit.exclude_methods", []string{"OPTIONS"})
	v.SetDefault("audit.sensitive_fields", []string{"password", "senha", "token", "secret"})

	v.SetDefault("retention.days", 365)
	v.SetDefault("retention.interval", 24*time.Hour)
	v.SetDefault("retention.lock_ttl", 10*time.Minute)

	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("grpc.health_addr", ":50052")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// loadKeyResource: PEM прямо из ENV имеет приоритет над файлом.
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
