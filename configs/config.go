package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost                string
	DBPort                string
	DBUser                string
	DBPassword            string
	DBName                string
	RedisAddr             string
	ServerPort            string
	JWTSecret             string
	NumberOfWorkers       int
	PollIntervalSeconds   int
	ProblemWindowHours    int
	LeaderboardLimit      int
	MaxSubmissionsPerUser int
}

func LoadConfig() *Config {
	err := godotenv.Load()

	if err != nil {
		log.Fatal("Error loading .env file", err)
	}

	return &Config{
		DBHost:                os.Getenv("DB_HOST"),
		DBPort:                os.Getenv("DB_PORT"),
		DBUser:                os.Getenv("DB_USER"),
		DBPassword:            os.Getenv("DB_PASSWORD"),
		DBName:                os.Getenv("DB_NAME"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		ServerPort:            os.Getenv("SERVER_PORT"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		NumberOfWorkers:       getEnvInt("NUM_OF_WORKERS", 2),
		PollIntervalSeconds:   getEnvInt("POLL_INTERVAL_SECONDS", 60),
		ProblemWindowHours:    getEnvInt("PROBLEM_WINDOW_HOURS", 168),
		LeaderboardLimit:      getEnvInt("LEADERBOARD_LIMIT", 10),
		MaxSubmissionsPerUser: getEnvInt("MAX_SUBMISSIONS_PER_USER", 0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
