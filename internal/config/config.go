package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Gemini (symptom triage)
	GeminiAPIKey  string
	GeminiModelID string

	// Google Calendar
	GoogleCredentialsFile string
	CalendarTimezone      string

	// Directory and availability
	SpecialistDirectoryFile string
	ClinicOpenHour          int
	ClinicCloseHour         int
	SlotLength              time.Duration
	BookingWindowDays       int

	// Per-call timeout for outbound AI/calendar requests
	ProviderTimeout time.Duration

	// Session store
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	// SendGrid email configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// DemoMode swaps the live Gemini and Calendar clients for in-process
	// fakes so the flow can be exercised without credentials.
	DemoMode bool

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		CalendarTimezone:      getEnv("CALENDAR_TIMEZONE", "Asia/Kolkata"),

		SpecialistDirectoryFile: getEnv("SPECIALIST_DIRECTORY_FILE", ""),
		ClinicOpenHour:          getEnvAsInt("CLINIC_OPEN_HOUR", 9),
		ClinicCloseHour:         getEnvAsInt("CLINIC_CLOSE_HOUR", 17),
		SlotLength:              getEnvAsDuration("SLOT_LENGTH", 30*time.Minute),
		BookingWindowDays:       getEnvAsInt("BOOKING_WINDOW_DAYS", 7),

		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 15*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "ClinicFlow"),

		DemoMode: getEnvAsBool("DEMO_MODE", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
