package tts

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"

	"readaloud/internal/storage"
)

type EngineType string

const (
	EngineTypeMock   EngineType = "mock"
	EngineTypeESpeak EngineType = "espeak"
	EngineTypeSay    EngineType = "say" // macOS only
	EngineTypeGoogle EngineType = "google"
	EngineTypeAuto   EngineType = "auto" // Automatically choose best for platform
)

func (e EngineType) String() string {
	return string(e)
}

// NewEngine creates a new TTS engine based on the provided config.
// store backs the google engine's audio cache and may be nil for the others.
func NewEngine(config Config, store storage.Adapter, log logrus.FieldLogger) (Engine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	// Handle auto-selection
	if config.Type == "" || config.Type == EngineTypeAuto.String() {
		config.Type = getBestEngineForPlatform().String()
		log.WithField("engine", config.Type).Info("auto-selected tts engine")
	}

	switch config.Type {
	case EngineTypeMock.String():
		return NewMockEngine(config), nil

	case EngineTypeGoogle.String():
		return newGoogleEngine(config, store, log)

	case EngineTypeESpeak.String():
		return newESpeakEngine(config)

	case EngineTypeSay.String():
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("say engine only supports macOS")
		}
		return newSayEngine(config)

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", config.Type)
	}
}

// getBestEngineForPlatform returns the recommended engine for the current platform
func getBestEngineForPlatform() EngineType {
	if hasGoogleCredentials() {
		return EngineTypeGoogle
	}

	switch runtime.GOOS {
	case "darwin":
		return EngineTypeSay
	default:
		return EngineTypeESpeak
	}
}

// AvailableEngines returns engines available on the current platform
func AvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeMock}

	if _, err := findESpeakExecutable(); err == nil {
		engines = append(engines, EngineTypeESpeak)
	}
	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogle)
	}
	if runtime.GOOS == "darwin" {
		engines = append(engines, EngineTypeSay)
	}

	return engines
}

// hasGoogleCredentials checks if Google Cloud credentials are available
func hasGoogleCredentials() bool {
	// Check for service account key file
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
