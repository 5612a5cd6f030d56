package main

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestConfigureLogLevelFromEnv(t *testing.T) {
	cases := []struct {
		envVal string
		want   zerolog.Level
	}{
		{"", zerolog.Disabled},
		{"0", zerolog.Disabled},
		{"false", zerolog.Disabled},
		{"1", zerolog.DebugLevel},
		{"true", zerolog.DebugLevel},
		{"verbose", zerolog.DebugLevel},
	}

	for _, tc := range cases {
		t.Setenv("DEBUG_WANDER", tc.envVal)
		configureLogLevelFromEnv()
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Errorf("DEBUG_WANDER=%q: log level = %v, want %v", tc.envVal, got, tc.want)
		}
	}
}

func TestSetupInterruptListener(t *testing.T) {
	stopChan := setupInterruptListener()
	if stopChan == nil {
		t.Fatal("expected a signal channel")
	}

	// The channel is buffered, so a send must not block.
	stopChan <- os.Interrupt
	select {
	case sig := <-stopChan:
		if sig != os.Interrupt {
			t.Errorf("expected os.Interrupt, got %v", sig)
		}
	case <-time.After(time.Second):
		t.Error("signal was not delivered")
	}
}

func TestHandleInterrupt(t *testing.T) {
	stopChan := make(chan os.Signal, 1)
	exited := make(chan int, 1)
	var logged string

	go handleInterrupt(stopChan,
		func(msg string) { logged = msg },
		func(code int) { exited <- code })

	stopChan <- os.Interrupt

	select {
	case code := <-exited:
		if code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
		if logged != "Interrupt signal received. Exiting..." {
			t.Errorf("unexpected log message: %q", logged)
		}
	case <-time.After(time.Second):
		t.Fatal("handleInterrupt did not call exit")
	}
}
