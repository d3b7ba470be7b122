package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Upload     UploadConfig
	OCR        OCRConfig
	Classifier ClassifierConfig
	GigaChat   GigaChatConfig
	OpenAI     OpenAIConfig
	Receipt    ReceiptConfig
	Logger     LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// BodyLimit must leave room for a full receipt upload plus multipart framing.
	BodyLimit int
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

type UploadConfig struct {
	Dir            string
	MaxBytes       int64
	KeepNormalized bool
}

type OCRConfig struct {
	Provider      string // gosseract, cli or none
	Languages     []string
	TesseractPath string
	PageSegMode   int
}

type ClassifierConfig struct {
	Provider string // gigachat, openai, keywords or none
	Timeout  time.Duration
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type ReceiptConfig struct {
	DefaultCurrency string
	MaxDimension    int
	MaxPixels       int
	CommitAttempts  int
	CommitBackoff   time.Duration
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work the same way (Docker/K8s)
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout := getEnvInt("SERVER_READ_TIMEOUT", 30)
	writeTimeout := getEnvInt("SERVER_WRITE_TIMEOUT", 60)
	jwtExp := getEnvInt("JWT_EXPIRATION_HOURS", 24)
	refreshExp := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168)
	maxUpload := int64(getEnvInt("UPLOAD_MAX_BYTES", 10*1024*1024))
	classifierTimeout := getEnvInt("CLASSIFIER_TIMEOUT_SECONDS", 10)
	commitBackoff := getEnvInt("RECEIPT_COMMIT_BACKOFF_MS", 250)

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
			BodyLimit:    int(maxUpload) + 1024*1024,
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "finance_manager"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		Upload: UploadConfig{
			Dir:            getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes:       maxUpload,
			KeepNormalized: getEnv("UPLOAD_KEEP_NORMALIZED", "false") == "true",
		},
		OCR: OCRConfig{
			Provider:      strings.ToLower(getEnv("OCR_PROVIDER", "gosseract")),
			Languages:     splitList(getEnv("OCR_LANGUAGES", "spa+eng")),
			TesseractPath: getEnv("TESSERACT_CMD", "tesseract"),
			PageSegMode:   getEnvInt("OCR_PSM", 6),
		},
		Classifier: ClassifierConfig{
			Provider: strings.ToLower(getEnv("CLASSIFIER_PROVIDER", "gigachat")),
			Timeout:  time.Duration(classifierTimeout) * time.Second,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			InsecureSkipVerify: getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true",
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Receipt: ReceiptConfig{
			DefaultCurrency: strings.ToUpper(getEnv("RECEIPT_DEFAULT_CURRENCY", "CAD")),
			MaxDimension:    getEnvInt("RECEIPT_MAX_DIMENSION", 2000),
			MaxPixels:       getEnvInt("RECEIPT_MAX_PIXELS", 40_000_000),
			CommitAttempts:  getEnvInt("RECEIPT_COMMIT_ATTEMPTS", 3),
			CommitBackoff:   time.Duration(commitBackoff) * time.Millisecond,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// splitList accepts both tesseract's "spa+eng" form and comma separated lists.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	return fields
}
