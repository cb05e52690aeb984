package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/ValentinKolb/cKV/cmd"
	"github.com/getsentry/sentry-go"
)

func main() {
	err := setupSentry()
	if err != nil {
		log.Fatalf("sentry init failed: %s", err)
	}

	code := cmd.Execute()

	// Flush buffered events before the program terminates.
	sentry.Flush(2 * time.Second)
	os.Exit(code)
}

// setupSentry enables crash reporting when SENTRY_DSN is set
func setupSentry() error {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}

	environment := os.Getenv("SENTRY_ENVIRONMENT")
	if environment == "" {
		environment = "local"
	}

	debug := false
	switch strings.ToLower(os.Getenv("SENTRY_DEBUG")) {
	case "1", "true", "yes", "on":
		debug = true
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Debug:       debug,
		Environment: environment,
		Release:     "ckv@" + cmd.Version,
	})
}
