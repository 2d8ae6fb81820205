package main

import (
	"log"

	"payment-gateway/internal/app"
)

// @title Payment Gateway Admission Layer
// @version 1.0
// @description Abuse protection, rate limiting, and request authentication
// @description in front of the payment API.
// @BasePath /
func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
