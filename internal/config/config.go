package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var PAYMENT_WALLET_ADDRESS string
var OPERATOR_CHAT_ID int64
var PENDING_PAYMENT_TTL_HOURS int

var log = InitLogger()

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func InitConfig() error {
	err := godotenv.Load()
	if err != nil {
		log.Error("Error loading .env file")
	}

	PAYMENT_WALLET_ADDRESS = os.Getenv("PAYMENT_WALLET_ADDRESS")

	OPERATOR_CHAT_ID, err = strconv.ParseInt(os.Getenv("OPERATOR_CHAT_ID"), 10, 64)
	if err != nil {
		log.Error("Error parsing OPERATOR_CHAT_ID")
		OPERATOR_CHAT_ID = 0
	}

	PENDING_PAYMENT_TTL_HOURS, err = strconv.Atoi(os.Getenv("PENDING_PAYMENT_TTL_HOURS"))
	if err != nil {
		log.Error("Error parsing PENDING_PAYMENT_TTL_HOURS")
		PENDING_PAYMENT_TTL_HOURS = 24
	}

	return nil
}

func LoadPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		DBName:   os.Getenv("DB_NAME"),
	}
}
