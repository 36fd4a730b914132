package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisAddr string
	RedisPass string

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	TelegramBotToken string

	OTPTTL          time.Duration
	OTPWindow       time.Duration
	OTPMaxPerWindow int
	OTPCooldown     time.Duration

	SessionTTL    time.Duration
	BotSessionTTL time.Duration

	JWTSecret string
	JWTIssuer string
}

func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env variables")
	}

	cfg := &AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBUser: getEnv("DB_USER", "postgres"),
		DBPass: getEnv("DB_PASS", ""),
		DBName: getEnv("DB_NAME", "medportal"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		SMTPHost:  getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:  getEnv("SMTP_PORT", "465"),
		SMTPUser:  getEnv("SMTP_USER", ""),
		SMTPPass:  getEnv("SMTP_PASS", ""),
		EmailFrom: getEnv("EMAIL_FROM", "no-reply@medportal.local"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		OTPTTL:          getDurationEnv("OTP_TTL", 5*time.Minute),
		OTPWindow:       getDurationEnv("OTP_WINDOW", 10*time.Minute),
		OTPMaxPerWindow: getIntEnv("OTP_MAX_PER_WINDOW", 5),
		OTPCooldown:     getDurationEnv("OTP_COOLDOWN", 30*time.Second),

		SessionTTL:    getDurationEnv("SESSION_TTL", 24*time.Hour),
		BotSessionTTL: getDurationEnv("BOT_SESSION_TTL", 30*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer: getEnv("JWT_ISSUER", "medportal"),
	}

	return cfg, nil
}

func (c *AppConfig) DatabaseDSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPass + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		log.Printf("[config] invalid int for %s, using default %d", key, fallback)
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("[config] invalid duration for %s, using default %s", key, fallback)
	}
	return fallback
}
