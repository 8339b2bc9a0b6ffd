package config

import (
	"log"
	"os"
)

type Config struct {
	Port string

	// Gemini
	GeminiAPIKey string
	ModelName    string

	// Storage: "memory" or "firestore"
	StorageBackend string
	GCPProjectID   string

	// Attachment object storage: "memory" or "s3"
	ObjectBackend string
	S3Bucket      string
	S3Region      string

	UseMockLLM bool // true = scripted replies, no provider calls
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

// Load reads all env vars and builds the config.
func Load() *Config {
	cfg := &Config{
		Port: getEnv("LUREBAIT_PORT", "8080"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		ModelName:    getEnv("LUREBAIT_MODEL_NAME", "gemini-2.5-flash"),

		StorageBackend: getEnv("LUREBAIT_STORAGE_BACKEND", "memory"),
		GCPProjectID:   getEnv("LUREBAIT_GCP_PROJECT", ""),

		ObjectBackend: getEnv("LUREBAIT_OBJECT_BACKEND", "memory"),
		S3Bucket:      getEnv("LUREBAIT_S3_BUCKET", ""),
		S3Region:      getEnv("LUREBAIT_S3_REGION", "ap-northeast-2"),

		UseMockLLM: getBoolEnv("LUREBAIT_USE_MOCK_LLM", false),
	}

	// Misconfigured backends are unrecoverable at startup.
	if cfg.StorageBackend == "firestore" && cfg.GCPProjectID == "" {
		log.Fatal("LUREBAIT_GCP_PROJECT must be set for the firestore backend")
	}
	if cfg.ObjectBackend == "s3" && cfg.S3Bucket == "" {
		log.Fatal("LUREBAIT_S3_BUCKET must be set for the s3 object backend")
	}

	return cfg
}
