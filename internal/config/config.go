package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppName        string
	AppPort        string
	AppEnv         string
	AppBaseURL     string
	DBDSN          string
	JWTSecret      string
	JWTExpiresMin  int
	BcryptCost     int
	LogLevel       string
	CORSOrigins    string
	TrackingPolicy string
	PurgeSchedule  string

	RedisAddr     string
	RedisPassword string

	UploadDir       string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string

	SendGridAPIKey   string
	SendGridFrom     string
	SendGridFromName string
	SendGridTemplate string
	SendGridSandbox  bool

	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
}

func Load() Config {
	return Config{
		AppName:        get("APP_NAME", "choreista-api"),
		AppPort:        get("APP_PORT", "8080"),
		AppEnv:         get("APP_ENV", "development"),
		AppBaseURL:     get("APP_BASE_URL", ""),
		DBDSN:          must("DB_DSN"),
		JWTSecret:      must("JWT_SECRET"),
		JWTExpiresMin:  getInt("JWT_EXPIRES_MIN", 10080),
		BcryptCost:     getInt("BCRYPT_COST", 10),
		LogLevel:       get("LOG_LEVEL", "info"),
		CORSOrigins:    get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		TrackingPolicy: get("CHORE_TRACKING_POLICY", "legacy"),
		PurgeSchedule:  get("SESSION_PURGE_SCHEDULE", "@every 1h"),

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),

		UploadDir:       get("UPLOAD_DIR", "./uploads"),
		S3Bucket:        get("S3_BUCKET", ""),
		S3Region:        get("S3_REGION", "us-east-1"),
		S3Endpoint:      get("S3_ENDPOINT", ""),
		S3AccessKey:     get("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:     get("S3_SECRET_ACCESS_KEY", ""),
		S3PublicBaseURL: get("S3_PUBLIC_BASE_URL", ""),

		SendGridAPIKey:   get("SENDGRID_API_KEY", ""),
		SendGridFrom:     get("SENDGRID_FROM_EMAIL", "no-reply@choreista.app"),
		SendGridFromName: get("SENDGRID_FROM_NAME", "Choreista Team"),
		SendGridTemplate: get("SENDGRID_WELCOME_TEMPLATE", ""),
		SendGridSandbox:  getBool("SENDGRID_SANDBOX", false),

		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
	}
}

// UseS3 reports whether uploads go to S3 rather than the local upload dir.
func (c Config) UseS3() bool {
	return c.S3Bucket != ""
}

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleSecret != ""
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func getBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getInt falls back to def unless the value is a positive integer.
func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
