package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	// QuizAPIBaseURL is the remote quiz-loading endpoint queried by
	// learning object code.
	QuizAPIBaseURL string
	// QuizAPITimeout bounds the wait for the remote endpoint before the
	// session falls back to the built-in sample set.
	QuizAPITimeout time.Duration

	RedisURL         string
	QuestionCacheTTL time.Duration
}

func LoadConfig() (*Config, error) {
	// A missing .env file is fine outside development; plain env vars
	// still apply.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		QuizAPIBaseURL:   getEnv("QUIZ_API_BASE_URL", "https://ai-math.clevai.edu.vn/quiz/load-quizs"),
		QuizAPITimeout:   getMillisEnv("QUIZ_API_TIMEOUT_MS", 5000),
		RedisURL:         getEnv("REDIS_URL", ""),
		QuestionCacheTTL: getMillisEnv("QUESTION_CACHE_TTL_MS", 300000),
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getMillisEnv(key string, defaultValue int64) time.Duration {
	value := os.Getenv(key)
	if value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return time.Duration(defaultValue) * time.Millisecond
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
