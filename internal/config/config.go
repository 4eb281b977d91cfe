package config

import "time"

// Config es la configuración raíz del servicio.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Badger    BadgerConfig    `yaml:"badger"`
	Log       LogConfig       `yaml:"log"`
	Clock     ClockConfig     `yaml:"clock"`
	Doses     DosesConfig     `yaml:"doses"`
	Adherence AdherenceConfig `yaml:"adherence"`
	Auth      AuthConfig      `yaml:"auth"`
	Notify    NotifyConfig    `yaml:"notify"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	Swagger         bool          `yaml:"swagger"          env:"SERVER_SWAGGER"          env-default:"true"`
}

// DatabaseConfig: DSN vacío = repos in-memory.
type DatabaseConfig struct {
	DSN         string `yaml:"dsn"          env:"DB_DSN"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"false"`
}

// BadgerConfig: Path vacío = la bandeja de notificaciones va al store principal.
type BadgerConfig struct {
	Path string `yaml:"path" env:"BADGER_PATH"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	App    string `yaml:"app"    env:"LOG_APP"    env-default:"care-connect"`
}

type ClockConfig struct {
	Timezone string `yaml:"timezone" env:"TIMEZONE" env-default:"UTC"`

	location *time.Location
}

// Location es válido después de Validate.
func (c ClockConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

type DosesConfig struct {
	GenerateAheadDays int           `yaml:"generate_ahead_days" env:"DOSES_GENERATE_AHEAD_DAYS" env-default:"7"`
	GenerationCron    string        `yaml:"generation_cron"     env:"DOSES_GENERATION_CRON"     env-default:"5 0 * * *"`
	MissGrace         time.Duration `yaml:"miss_grace"          env:"DOSES_MISS_GRACE"          env-default:"0s"`
	SweepCron         string        `yaml:"sweep_cron"          env:"DOSES_SWEEP_CRON"          env-default:"*/15 * * * *"`
	SchedulerEnabled  bool          `yaml:"scheduler_enabled"   env:"DOSES_SCHEDULER_ENABLED"   env-default:"true"`
}

type AdherenceConfig struct {
	DefaultDays      int `yaml:"default_days"      env:"ADHERENCE_DEFAULT_DAYS"      env-default:"30"`
	AlertThreshold   int `yaml:"alert_threshold"   env:"ADHERENCE_ALERT_THRESHOLD"   env-default:"70"`
	SuccessThreshold int `yaml:"success_threshold" env:"ADHERENCE_SUCCESS_THRESHOLD" env-default:"90"`
}

// AuthConfig: sin JWTSecret el servicio corre en modo dev (header X-Debug-User-ID).
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	JWTIssuer string        `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER"`
	Leeway    time.Duration `yaml:"leeway"     env:"AUTH_LEEWAY"     env-default:"30s"`
}

func (a AuthConfig) DevMode() bool { return a.JWTSecret == "" }

type NotifyConfig struct {
	PushoverToken  string        `yaml:"pushover_token"  env:"PUSHOVER_API_TOKEN"`
	WebhookURL     string        `yaml:"webhook_url"     env:"NOTIFY_WEBHOOK_URL"`
	WebhookSecret  string        `yaml:"webhook_secret"  env:"NOTIFY_WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout" env:"NOTIFY_WEBHOOK_TIMEOUT" env-default:"5s"`
}
