package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host        string
	Port        int
	Email       string
	Password    string
	SenderName  string
	OnCallEmail string // Recipient of safety alerts, empty disables mail delivery
}

type AIConfig struct {
	LLMProvider        string // "ollama", "huggingface" or "ark"
	LLMModel           string // e.g. "llama3", "qwen2.5"
	AnalysisModel      string // Optional override for the analysis step
	OllamaBaseURL      string
	HuggingFaceKey     string
	HuggingFaceBaseURL string
	ArkAPIKey          string
	ArkBaseURL         string
}

// PipelineConfig tunes the message-processing run.
type PipelineConfig struct {
	SubmitTopic         string
	EscalationThreshold int
	StepTimeout         time.Duration
	AlertTimeout        time.Duration
	MaxAttempts         int
	InitialBackoff      time.Duration
	MaxBackoff          time.Duration
	PersistAttempts     int
	LockTTL             time.Duration
	HistoryLimit        int
	RecoveryInterval    time.Duration
	WaitTimeout         time.Duration
	Goals               []string
	SystemPrompt        string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnvAsInt("SMTP_PORT", 587),
			Email:       getEnv("SMTP_EMAIL", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			SenderName:  getEnv("SMTP_SENDER_NAME", "Counselor Safety"),
			OnCallEmail: getEnv("SAFETY_ONCALL_EMAIL", ""),
		},
		Ai: AIConfig{
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "llama3"),
			AnalysisModel:      getEnv("LLM_ANALYSIS_MODEL", ""),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceKey:     getEnv("HUGGINGFACE_API_KEY", ""),
			HuggingFaceBaseURL: getEnv("HUGGINGFACE_BASE_URL", ""),
			ArkAPIKey:          getEnv("ARK_API_KEY", ""),
			ArkBaseURL:         getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		},
		Pipeline: PipelineConfig{
			SubmitTopic:         getEnv("PIPELINE_SUBMIT_TOPIC", "COUNSEL_MESSAGE_SUBMITTED"),
			EscalationThreshold: getEnvAsInt("PIPELINE_ESCALATION_THRESHOLD", 4),
			StepTimeout:         getEnvAsDuration("PIPELINE_STEP_TIMEOUT", 30*time.Second),
			AlertTimeout:        getEnvAsDuration("PIPELINE_ALERT_TIMEOUT", 5*time.Second),
			MaxAttempts:         getEnvAsInt("PIPELINE_MAX_ATTEMPTS", 3),
			InitialBackoff:      getEnvAsDuration("PIPELINE_INITIAL_BACKOFF", 500*time.Millisecond),
			MaxBackoff:          getEnvAsDuration("PIPELINE_MAX_BACKOFF", 5*time.Second),
			PersistAttempts:     getEnvAsInt("PIPELINE_PERSIST_ATTEMPTS", 5),
			LockTTL:             getEnvAsDuration("PIPELINE_LOCK_TTL", 3*time.Minute),
			HistoryLimit:        getEnvAsInt("PIPELINE_HISTORY_LIMIT", 10),
			RecoveryInterval:    getEnvAsDuration("PIPELINE_RECOVERY_INTERVAL", time.Minute),
			WaitTimeout:         getEnvAsDuration("PIPELINE_WAIT_TIMEOUT", 2*time.Minute),
			Goals: getEnvAsList("PIPELINE_GOALS", []string{
				"Provide emotional support",
				"Help the user understand their feelings",
				"Suggest practical coping strategies",
			}),
			SystemPrompt: getEnv("PIPELINE_SYSTEM_PROMPT", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("30s", "2m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a "|" separated value, goals may contain commas.
func getEnvAsList(key string, fallback []string) []string {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(strValue, "|") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
