package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/nayoung-dev/stamprally/internal/server"
)

func main() {
	// Optional in production; environment variables win either way.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
