// Package app wires configuration, storage, content and narration together
// and implements the readaloud commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"readaloud/internal/config"
	"readaloud/internal/content"
	"readaloud/internal/domain/book"
	"readaloud/internal/reader/playback"
	"readaloud/internal/reader/tts"
	"readaloud/internal/storage"
)

// App main application structure
type App struct {
	cfg      *config.Config
	log      *logrus.Logger
	closeLog func() error
	store    storage.Adapter

	ctx    context.Context
	Cancel context.CancelFunc

	mu         sync.Mutex
	narrator   *tts.Narrator
	controller *playback.Controller
	shutdown   sync.Once
}

func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		log:      logrus.StandardLogger(),
		closeLog: func() error { return nil },
		ctx:      ctx,
		Cancel:   cancel,
	}
}

// Setup reads the configuration at path (or the default search path) and
// opens the logger and blob store. With logToFile the log goes to log.file.
func (a *App) Setup(path string, logToFile bool) error {
	v := viper.New()
	if err := config.Init(v, path); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	return a.configure(cfg, logToFile)
}

func (a *App) configure(cfg *config.Config, logToFile bool) error {
	log, closeLog, err := NewLogger(cfg.Log, logToFile)
	if err != nil {
		return err
	}

	store, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		closeLog()
		return fmt.Errorf("failed to open storage: %w", err)
	}

	a.cfg = cfg
	a.log = log
	a.closeLog = closeLog
	a.store = store

	log.WithFields(logrus.Fields{
		"source":  cfg.Content.Source,
		"storage": cfg.Storage.Adapter,
		"engine":  cfg.TTS.Type,
	}).Debug("configured")
	return nil
}

// NewLogger builds a logrus logger from cfg. Unless toFile is set or no file
// is configured, it writes to stderr.
func NewLogger(cfg config.LogConfig, toFile bool) (*logrus.Logger, func() error, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if !toFile || cfg.File == "" {
		log.SetOutput(os.Stderr)
		return log, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return log, f.Close, nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// ResolveBook finds the book to narrate. An empty id falls back to book.id.
// Stored books use their manifest; other sources take their metadata from
// the book section of the config.
func (a *App) ResolveBook(ctx context.Context, id string) (book.Book, error) {
	cfgBook := a.cfg.Book
	if id == "" {
		id = cfgBook.ID
	}
	if id == "" {
		return book.Book{}, errors.New("no book given (pass a book id or set book.id)")
	}

	b := book.Book{ID: id}
	switch a.cfg.Content.Source {
	case config.SourceStore:
		stored, err := content.NewStoreProvider(a.store, a.log).Book(ctx, id)
		if err != nil {
			return book.Book{}, err
		}
		b = stored
	case config.SourceEPUB:
		count, err := content.NewEPUBProvider(a.cfg.Content.EPUBPath).ChapterCount()
		if err != nil {
			return book.Book{}, fmt.Errorf("failed to open %s: %w", a.cfg.Content.EPUBPath, err)
		}
		b.ChapterCount = count
	case config.SourceHTTP:
		b.ChapterCount = cfgBook.Chapters
	}

	if id == cfgBook.ID {
		if b.Title == "" || b.Title == id {
			if cfgBook.Title != "" {
				b.Title = cfgBook.Title
			}
		}
		if b.Author == "" {
			b.Author = cfgBook.Author
		}
		if b.ChapterCount == 0 {
			b.ChapterCount = cfgBook.Chapters
		}
	}
	if b.Language == "" {
		b.Language = a.cfg.TTS.Language
	}
	return b, nil
}

func (a *App) engineConfig(quiet bool) tts.Config {
	return tts.Config{
		Type:        a.cfg.TTS.Type,
		Speed:       a.cfg.TTS.Speed,
		Volume:      a.cfg.TTS.Volume,
		Voice:       a.cfg.TTS.Voice,
		Language:    a.cfg.TTS.Language,
		CachePrefix: a.cfg.TTS.CachePrefix,
		Quiet:       quiet,
	}
}

// openController builds the engine, narrator and controller for b. Only one
// controller may be open at a time since the narrator accepts one subscriber.
func (a *App) openController(b book.Book, quiet bool) (*playback.Controller, error) {
	provider, err := content.NewProvider(a.cfg.Content, a.store, a.log)
	if err != nil {
		return nil, err
	}
	engine, err := tts.NewEngine(a.engineConfig(quiet), a.store, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create tts engine: %w", err)
	}
	return a.openControllerWith(engine, provider, b)
}

func (a *App) openControllerWith(engine tts.Engine, provider content.Provider, b book.Book) (*playback.Controller, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.controller != nil {
		return nil, tts.ErrBackendInUse
	}

	narrator := tts.NewNarrator(engine, a.log)
	language := b.Language
	if language == "" {
		language = a.cfg.TTS.Language
	}
	controller, err := playback.New(playback.Options{
		Backend:  narrator,
		Provider: provider,
		Book:     b,
		Language: language,
		Voice:    a.cfg.TTS.Voice,
		Rate:     a.cfg.TTS.Speed,
		Volume:   a.cfg.TTS.Volume,
		Logger:   a.log,
	})
	if err != nil {
		narrator.Close()
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"book":     b.ID,
		"chapters": b.ChapterCount,
		"engine":   engine.Name(),
	}).Info("opened book")

	a.narrator = narrator
	a.controller = controller
	return controller, nil
}

// Shutdown stops narration and releases the store and log file.
func (a *App) Shutdown() {
	a.shutdown.Do(func() {
		a.Cancel()

		a.mu.Lock()
		controller, narrator := a.controller, a.narrator
		a.mu.Unlock()

		if controller != nil {
			controller.Close()
		}
		if narrator != nil {
			if err := narrator.Close(); err != nil {
				a.log.WithError(err).Warn("failed to close tts engine")
			}
		}
		if a.store != nil {
			a.store.Close()
		}
		a.closeLog()
	})
}
