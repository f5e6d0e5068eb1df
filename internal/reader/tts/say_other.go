//go:build !darwin

package tts

import "fmt"

func newSayEngine(config Config) (Engine, error) {
	return nil, fmt.Errorf("say engine only supports macOS")
}
