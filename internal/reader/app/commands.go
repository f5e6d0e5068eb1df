package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"readaloud/internal/cli/scheme/colours"
	"readaloud/internal/config"
	"readaloud/internal/content"
	"readaloud/internal/domain/book"
	"readaloud/internal/reader/playback"
	"readaloud/internal/reader/segment"
	"readaloud/internal/reader/tts"
	"readaloud/internal/reader/view"
	"readaloud/internal/reader/voice"
)

func (a *App) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("📖 readaloud")
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • readaloud read [book]     - Open the reader with narration")
	fmt.Println("  • readaloud listen [book]   - Narrate and take voice commands from stdin")
	fmt.Println("  • readaloud speak [file]    - Narrate a text file or stdin")
	fmt.Println("  • readaloud list            - List stored books")
	fmt.Println("  • readaloud import <id> <f> - Store a text file as a book")
	fmt.Println("  • readaloud segment [file]  - Show how text is split into sentences")
	fmt.Println("  • readaloud voices          - List voices of the configured engine")
	fmt.Println("  • readaloud settings        - Show the effective configuration")
}

// Read opens the terminal reader on a chapter of the book.
func (a *App) Read(cmd *cobra.Command, args []string) error {
	chapterIndex, _ := cmd.Flags().GetInt("chapter")
	autoplay, _ := cmd.Flags().GetBool("autoplay")

	b, err := a.ResolveBook(a.ctx, firstArg(args))
	if err != nil {
		return err
	}
	controller, err := a.openController(b, true)
	if err != nil {
		return err
	}

	model := view.New(a.ctx, controller)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(a.ctx))

	go func() {
		if err := controller.OpenChapter(a.ctx, chapterIndex); err != nil {
			// the view shows load failures
			a.log.WithError(err).WithField("chapter", chapterIndex).Warn("failed to open chapter")
			return
		}
		if autoplay {
			controller.Play()
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("reader failed: %w", err)
	}
	return nil
}

// Listen narrates the book in the terminal and executes voice command
// transcripts read from stdin, one per line.
func (a *App) Listen(cmd *cobra.Command, args []string) error {
	chapterIndex, _ := cmd.Flags().GetInt("chapter")
	autoplay, _ := cmd.Flags().GetBool("autoplay")

	b, err := a.ResolveBook(a.ctx, firstArg(args))
	if err != nil {
		return err
	}
	controller, err := a.openController(b, true)
	if err != nil {
		return err
	}

	events, unsubscribe := controller.Subscribe()
	defer unsubscribe()
	go a.printEvents(os.Stdout, controller, events)

	fmt.Println()
	colours.Title.Printf("📖 %s\n", displayTitle(b))
	if b.Author != "" {
		colours.Author.Printf("✍️  by %s\n", b.Author)
	}

	if err := controller.OpenChapter(a.ctx, chapterIndex); err != nil {
		return err
	}
	if autoplay {
		if err := controller.Play(); err != nil && !errors.Is(err, playback.ErrEmptyChapter) {
			return err
		}
	}

	colours.Prompt.Println("🎙️  Listening for voice commands (one per line, Ctrl+D to quit)")
	bridge := voice.NewBridge(controller, a.log)
	if err := bridge.Run(a.ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	controller.Stop()
	return nil
}

// printEvents echoes the spoken sentence and chapter changes until events closes.
func (a *App) printEvents(w io.Writer, controller *playback.Controller, events <-chan playback.Event) {
	lastSeq, lastIndex := uint64(0), -1
	for ev := range events {
		s := ev.Session
		switch ev.Kind {
		case playback.ChapterLoading:
			colours.Info.Fprintf(w, "⏳ Loading chapter %d...\n", s.ChapterIndex)
		case playback.ChapterLoaded:
			colours.Success.Fprintf(w, "📄 Chapter %d: %d sentences\n", s.ChapterIndex, s.SentenceCount)
		case playback.ChapterFailed:
			colours.Error.Fprintf(w, "❌ %v\n", s.LastErr)
		case playback.StateChanged, playback.SentenceChanged:
			if s.Completed && s.State == playback.Stopped {
				colours.Success.Fprintf(w, "✅ Chapter %d finished\n", s.ChapterIndex)
				continue
			}
			if s.State != playback.Playing || (s.Sequence == lastSeq && s.SentenceIndex == lastIndex) {
				continue
			}
			lastSeq, lastIndex = s.Sequence, s.SentenceIndex
			if sentence, ok := controller.CurrentSentence(); ok {
				colours.Position.Fprintf(w, "  [%d/%d] ", s.SentenceIndex+1, s.SentenceCount)
				colours.Sentence.Fprintf(w, "%s.\n", sentence.Text)
			}
		case playback.SettingsChanged:
			colours.Info.Fprintf(w, "🎚️  rate %.1fx, volume %d%%\n", s.Rate, int(s.Volume*100+0.5))
		}
	}
}

// Speak narrates a text file (or stdin) sentence by sentence and waits for it to finish.
func (a *App) Speak(cmd *cobra.Command, args []string) error {
	text, err := readInput(firstArg(args))
	if err != nil {
		return err
	}
	sentences := segment.Segment(text)
	if len(sentences) == 0 {
		colours.Warning.Println("🔍 Nothing to read.")
		return nil
	}

	controller, err := a.openController(book.Book{ID: "text", Title: "text", ChapterCount: 1}, false)
	if err != nil {
		return err
	}
	events, unsubscribe := controller.Subscribe()
	defer unsubscribe()

	controller.LoadChapter(1, sentences)
	if err := controller.Play(); err != nil {
		return err
	}

	colours.Success.Printf("🎵 Reading %d sentences... (Ctrl+C to stop)\n", len(sentences))
	for {
		select {
		case <-a.ctx.Done():
			controller.Stop()
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s := ev.Session
			if ev.Kind != playback.StateChanged || s.State != playback.Stopped {
				continue
			}
			if s.LastErr != nil {
				return s.LastErr
			}
			if s.Completed {
				colours.Success.Println("✅ Finished!")
			}
			return nil
		}
	}
}

// Segment prints the sentences the narrator would speak.
func (a *App) Segment(cmd *cobra.Command, args []string) error {
	join, _ := cmd.Flags().GetBool("join")

	text, err := readInput(firstArg(args))
	if err != nil {
		return err
	}
	sentences := segment.Segment(text)
	if join {
		fmt.Println(segment.Join(sentences))
		return nil
	}
	for _, s := range sentences {
		colours.Position.Printf("%4d ", s.Order+1)
		colours.Sentence.Println(s.Text)
	}
	colours.Success.Printf("✨ %d sentences\n", len(sentences))
	return nil
}

// ListBooks lists the books held in storage.
func (a *App) ListBooks(cmd *cobra.Command, args []string) error {
	store := content.NewStoreProvider(a.store, a.log)
	ids, err := store.Books(a.ctx)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}

	fmt.Println()
	colours.Title.Println("📚 Stored Books 📚")
	fmt.Println()

	for i, id := range ids {
		b, err := store.Book(a.ctx, id)
		if err != nil {
			colours.Warning.Printf("  %d. %s (unreadable manifest: %v)\n", i+1, id, err)
			continue
		}
		fmt.Printf("  %d. ", i+1)
		colours.Title.Printf("%s", displayTitle(b))
		if b.Author != "" {
			fmt.Printf(" by ")
			colours.Author.Printf("%s", b.Author)
		}
		fmt.Printf("\n     📄 %d chapters", b.ChapterCount)
		if b.Language != "" {
			fmt.Printf(" | 🌐 %s", b.Language)
		}
		fmt.Println()
		colours.Info.Printf("     ID: %s\n", b.ID)
		fmt.Println()
	}

	if len(ids) == 0 {
		colours.Warning.Println("🔍 No books stored yet. Add one with 'readaloud import'.")
	} else {
		colours.Success.Printf("✨ Found %d books\n", len(ids))
	}
	return nil
}

// Import stores a plain text file as a book, one chapter per heading.
func (a *App) Import(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	author, _ := cmd.Flags().GetString("author")
	language, _ := cmd.Flags().GetString("language")

	text, err := readInput(args[1])
	if err != nil {
		return err
	}
	if title == "" {
		title = args[0]
	}
	if language == "" {
		language = a.cfg.TTS.Language
	}

	b, err := content.NewStoreProvider(a.store, a.log).Import(a.ctx, book.Book{
		ID:       args[0],
		Title:    title,
		Author:   author,
		Language: language,
	}, text)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", args[0], err)
	}

	colours.Success.Printf("✅ Imported ")
	colours.Title.Printf("%s", b.Title)
	colours.Success.Printf(" with %d chapters\n", b.ChapterCount)
	for _, ref := range b.Chapters {
		if ref.Title != "" {
			fmt.Printf("  %3d. %s\n", ref.Index, ref.Title)
		}
	}
	return nil
}

// ListVoices prints the voices offered by the configured engine.
func (a *App) ListVoices(cmd *cobra.Command, args []string) error {
	engine, err := tts.NewEngine(a.engineConfig(true), a.store, a.log)
	if err != nil {
		return fmt.Errorf("failed to create tts engine: %w", err)
	}
	if c, ok := engine.(interface{ Close() error }); ok {
		defer c.Close()
	}

	ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
	defer cancel()
	voices, err := engine.Voices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	colours.Title.Printf("🎤 Voices for %s\n", engine.Name())
	for _, v := range voices {
		marker := "  "
		if v == a.cfg.TTS.Voice {
			marker = "▶ "
		}
		fmt.Printf("%s%s\n", marker, v)
	}
	return nil
}

// ListEngines prints the engines usable on this machine.
func (a *App) ListEngines(cmd *cobra.Command, args []string) error {
	colours.Title.Println("🔊 Available TTS engines")
	for _, e := range tts.AvailableEngines() {
		if e.String() == a.cfg.TTS.Type {
			colours.Success.Printf("  ▶ %s (configured)\n", e)
			continue
		}
		fmt.Printf("    %s\n", e)
	}
	if a.cfg.TTS.Type == tts.EngineTypeAuto.String() {
		colours.Info.Println("💡 tts.type is auto: google when credentials exist, otherwise the platform default")
	}
	return nil
}

// ShowSettings prints the effective configuration.
func (a *App) ShowSettings(cmd *cobra.Command, args []string) error {
	c := a.cfg

	fmt.Println()
	colours.Title.Println("⚙️ Settings ⚙️")
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	colours.Prompt.Println("🎤 Voice:")
	fmt.Fprintf(w, "  engine\t%s\n", c.TTS.Type)
	fmt.Fprintf(w, "  voice\t%s\n", c.TTS.Voice)
	fmt.Fprintf(w, "  language\t%s\n", c.TTS.Language)
	fmt.Fprintf(w, "  speed\t%.1fx\n", c.TTS.Speed)
	fmt.Fprintf(w, "  volume\t%d%%\n", int(c.TTS.Volume*100+0.5))
	w.Flush()

	colours.Prompt.Println("📚 Content:")
	fmt.Fprintf(w, "  source\t%s\n", c.Content.Source)
	switch c.Content.Source {
	case config.SourceHTTP:
		fmt.Fprintf(w, "  base url\t%s\n", c.Content.BaseURL)
		fmt.Fprintf(w, "  device id\t%s\n", c.Content.DeviceID)
		fmt.Fprintf(w, "  timeout\t%s\n", c.Content.Timeout)
	case config.SourceEPUB:
		fmt.Fprintf(w, "  epub\t%s\n", c.Content.EPUBPath)
	}
	if c.Content.Cache.Enabled {
		fmt.Fprintf(w, "  cache\tmax age %s\n", c.Content.Cache.MaxAge)
	} else {
		fmt.Fprintf(w, "  cache\toff\n")
	}
	w.Flush()

	colours.Prompt.Println("💾 Storage:")
	fmt.Fprintf(w, "  adapter\t%s\n", c.Storage.Adapter)
	if c.Storage.Adapter == config.StorageS3 {
		fmt.Fprintf(w, "  bucket\t%s\n", c.Storage.S3.Bucket)
		fmt.Fprintf(w, "  region\t%s\n", c.Storage.S3.Region)
		if c.Storage.S3.Endpoint != "" {
			fmt.Fprintf(w, "  endpoint\t%s\n", c.Storage.S3.Endpoint)
		}
	} else {
		fmt.Fprintf(w, "  path\t%s\n", c.Storage.Local.BasePath)
	}
	w.Flush()

	colours.Prompt.Println("📝 Logging:")
	fmt.Fprintf(w, "  level\t%s\n", c.Log.Level)
	fmt.Fprintf(w, "  format\t%s\n", c.Log.Format)
	fmt.Fprintf(w, "  file\t%s\n", c.Log.File)
	fmt.Fprintf(w, "  colour\t%v\n", colours.Enabled())
	w.Flush()
	return nil
}

func (a *App) chapterCache() *content.CachedProvider {
	return content.NewCachedProvider(nil, a.store, a.cfg.Content.Cache.MaxAge, a.log)
}

// ClearCache removes cached chapters of one book, or of every book.
func (a *App) ClearCache(cmd *cobra.Command, args []string) error {
	n, err := a.chapterCache().Clear(a.ctx, firstArg(args))
	if err != nil {
		return err
	}
	colours.Success.Printf("🧹 Removed %d cached chapters\n", n)
	return nil
}

// ShowCacheStatus displays information about the chapter cache
func (a *App) ShowCacheStatus(cmd *cobra.Command, args []string) error {
	cache := a.chapterCache()
	colours.Title.Println("📊 Chapter Cache Status")

	if !a.cfg.Content.Cache.Enabled {
		colours.Warning.Println("⏸️  Cache is disabled (content.cache.enabled)")
	}

	infos, err := cache.Info(a.ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		colours.Warning.Println("❌ Cache is empty")
		return nil
	}

	for _, info := range infos {
		status := colours.Success.Sprint("fresh")
		if !info.Fresh {
			status = colours.Warning.Sprint("stale")
		}
		fmt.Printf("  %s chapter %d  %s  %s\n",
			info.BookID, info.Chapter, info.LastUpdated.Format("2006-01-02 15:04:05"), status)
	}
	colours.Info.Printf("⏳ Max age: %.1f hours\n", cache.MaxAge().Hours())
	return nil
}

// AddCacheCommands adds the cache management commands to rootCmd
func (a *App) AddCacheCommands(rootCmd *cobra.Command) {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "🗄️ Manage the chapter cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear [book-id]",
		Short: "🧹 Remove cached chapters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.ClearCache,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "📊 Show cache status",
		Args:  cobra.NoArgs,
		RunE:  a.ShowCacheStatus,
	}

	cacheCmd.AddCommand(clearCmd, statusCmd)
	rootCmd.AddCommand(cacheCmd)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

func displayTitle(b book.Book) string {
	if strings.TrimSpace(b.Title) != "" {
		return b.Title
	}
	return b.ID
}
