package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port  string
	Env   string
	Model string

	// APIKeys is the Gemini key pool rotated round-robin per request.
	APIKeys []string

	RequestTimeoutSec int
	RPS               float64
	Burst             int

	History  HistoryConfig
	Artifact ArtifactConfig
}

type HistoryConfig struct {
	// PostgresDSN selects the database backend when set.
	PostgresDSN string
	// FilePath selects the JSON file backend when set and no DSN is given.
	FilePath string
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	model := flag.String("model", "", "gemini model override")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	m := strings.TrimSpace(*model)
	if m == "" {
		m = strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	}

	return &Config{
		Port:              *port,
		Env:               env,
		Model:             m,
		APIKeys:           loadAPIKeys(),
		RequestTimeoutSec: intEnv("LLM_TIMEOUT_SEC", 60),
		RPS:               floatEnv("LLM_RPS", 2),
		Burst:             intEnv("LLM_BURST", 2),
		History: HistoryConfig{
			PostgresDSN: strings.TrimSpace(os.Getenv("HISTORY_PG_DSN")),
			FilePath:    strings.TrimSpace(os.Getenv("HISTORY_FILE")),
		},
		Artifact: loadArtifactConfig(env),
	}, nil
}

// loadAPIKeys reads GEMINI_API_KEYS as a comma-separated pool, falling back
// to the single GEMINI_API_KEY.
func loadAPIKeys() []string {
	raw := strings.TrimSpace(os.Getenv("GEMINI_API_KEYS"))
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "prism-artifacts"),
		UseSSL:    resolveArtifactUseSSL(env),
	}
}

func resolveArtifactEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func intEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func floatEnv(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
