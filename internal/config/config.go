package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`

	Database Database `envPrefix:"DATABASE_"`
	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Groq     Groq     `envPrefix:"GROQ_"`
	Email    Email    `envPrefix:"EMAIL_"`
	SendGrid SendGrid `envPrefix:"SENDGRID_"`
	Resend   Resend   `envPrefix:"RESEND_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Auth     Auth     `envPrefix:"AUTH_"`
}

type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"postgres"` // postgres, mysql, sqlite
	URL             string        `env:"URL"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

type Stripe struct {
	SecretKey         string        `env:"SECRET_KEY"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTolerance  time.Duration `env:"WEBHOOK_TOLERANCE" envDefault:"5m"`
	PlatformAccountID string        `env:"PLATFORM_ACCOUNT_ID" envDefault:"acct_default"`
	LookupTimeout     time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"5s"`
}

type Groq struct {
	APIKey  string        `env:"API_KEY"`
	BaseURL string        `env:"BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	Model   string        `env:"MODEL" envDefault:"llama-3.3-70b-versatile"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"8s"`
}

type Email struct {
	Provider    string        `env:"PROVIDER" envDefault:"sendgrid"` // sendgrid, resend, log
	FromName    string        `env:"FROM_NAME" envDefault:"Mend"`
	FromAddress string        `env:"FROM_ADDRESS" envDefault:"noreply@mendapp.tech"`
	ReplyTo     string        `env:"REPLY_TO" envDefault:"support@mendapp.tech"`
	Subject     string        `env:"SUBJECT" envDefault:"Payment Issue Update"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type SendGrid struct {
	APIKey string `env:"API_KEY"`
}

type Resend struct {
	APIKey string `env:"API_KEY"`
}

type Redis struct {
	URL          string        `env:"URL"`
	ProcessedTTL time.Duration `env:"PROCESSED_TTL" envDefault:"24h"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
