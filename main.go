package main

import (
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wanderstay/wander/cmd"
	"github.com/wanderstay/wander/db"
)

// main is the entry point of the application.
// It sets up logging based on the DEBUG_WANDER environment variable,
// starts a goroutine to listen for interrupt signals, and executes the main command.
func main() {
	configureLogLevelFromEnv()

	stopChan := setupInterruptListener()
	go handleInterrupt(stopChan, logFatalMessage, os.Exit)

	// Program entry point
	cmd.Execute()
}

// configureLogLevelFromEnv enables debug logging when DEBUG_WANDER is set to
// anything but "", "0", or "false"; otherwise logging is disabled entirely.
func configureLogLevelFromEnv() {
	switch os.Getenv("DEBUG_WANDER") {
	case "", "0", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// setupInterruptListener registers for interrupt signals and returns the channel.
func setupInterruptListener() chan os.Signal {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	return stopChan
}

// handleInterrupt waits for an interrupt signal, closes the database, logs
// the message, and exits. The log and exit functions are injected so tests
// can observe the calls.
func handleInterrupt(stopChan chan os.Signal, logFatal func(string), exit func(int)) {
	<-stopChan
	db.Shutdown()
	logFatal("Interrupt signal received. Exiting...")
	exit(1)
}

func logFatalMessage(msg string) {
	log.Error().Msg(msg)
}
