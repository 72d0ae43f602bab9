package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read from the environment, optionally seeded from a .env file
type Config struct {
	Addr           string
	DatabaseURL    string
	JWTKey         string
	TokenTTL       time.Duration
	AllowedOrigins []string
	GeminiAPIKey   string
	GeminiModel    string
	PublicURL      string
	ServerURL      string
	SessionDir     string
	BackendTimeout time.Duration
	Debug          bool
}

// Load reads .env files (missing ones are fine) and then the environment
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	home, _ := os.UserConfigDir()
	cfg := Config{
		Addr:           getString("ADDR", ":8080"),
		DatabaseURL:    getString("DATABASE_URL", ""),
		JWTKey:         getString("JWT_KEY", "dev-only-insecure-key"),
		TokenTTL:       getDuration("TOKEN_TTL", 7*24*time.Hour),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"*"}),
		GeminiAPIKey:   getString("GEMINI_API_KEY", ""),
		GeminiModel:    getString("GEMINI_MODEL", "gemini-2.5-flash"),
		PublicURL:      getString("PUBLIC_URL", "http://localhost:8080/"),
		ServerURL:      getString("SERVER_URL", "http://localhost:8080"),
		SessionDir:     getString("SESSION_DIR", home+"/imposter"),
		BackendTimeout: getDuration("BACKEND_TIMEOUT", 5*time.Second),
		Debug:          getString("DEBUG", "") != "",
	}
	return cfg, nil
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// bare numbers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
