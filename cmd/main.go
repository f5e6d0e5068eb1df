package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"readaloud/internal/cli/scheme/colours"
	"readaloud/internal/reader/app"
)

func main() {
	a := app.New()
	defer a.Shutdown()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		a.Cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Stopping narration..."))
		<-sigChan
		a.Shutdown()
		os.Exit(1)
	}()

	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "readaloud",
		Short: "📖 Sentence by sentence narration of books",
		Long: `
readaloud reads books aloud one sentence at a time, highlighting the
sentence being spoken. Narration is controlled from the keyboard or by
voice command transcripts.
		`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// the reader owns the terminal, so its log goes to a file
			return a.Setup(cfgFile, cmd.Name() == "read")
		},
		Run: func(cmd *cobra.Command, args []string) {
			a.ShowWelcome()
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.readaloud/readaloud.yaml)")

	// Read command
	readCmd := &cobra.Command{
		Use:   "read [book-id]",
		Short: "📖 Open the reader",
		Long:  "Open a chapter in the terminal reader. Space plays and pauses, arrows move between sentences, [ and ] between chapters.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.Read,
	}

	// Listen command
	listenCmd := &cobra.Command{
		Use:   "listen [book-id]",
		Short: "🎙️ Narrate with voice commands",
		Long:  "Narrate a chapter and execute recognized voice command transcripts read from stdin, one per line",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.Listen,
	}

	// Speak command
	speakCmd := &cobra.Command{
		Use:   "speak [file]",
		Short: "🔊 Narrate a text file",
		Long:  "Narrate a text file, or stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.Speak,
	}

	segmentCmd := &cobra.Command{
		Use:   "segment [file]",
		Short: "✂️ Split text into sentences",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.Segment,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 List stored books",
		Args:  cobra.NoArgs,
		RunE:  a.ListBooks,
	}

	importCmd := &cobra.Command{
		Use:   "import <book-id> <file>",
		Short: "📥 Store a text file as a book",
		Long:  "Split a plain text file at its chapter headings and store the chapters and a manifest",
		Args:  cobra.ExactArgs(2),
		RunE:  a.Import,
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 List voices of the configured engine",
		Args:  cobra.NoArgs,
		RunE:  a.ListVoices,
	}

	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "🔊 List available TTS engines",
		Args:  cobra.NoArgs,
		RunE:  a.ListEngines,
	}

	// Settings command
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show settings",
		Long:  "Show the effective voice, content, storage and logging settings",
		Args:  cobra.NoArgs,
		RunE:  a.ShowSettings,
	}

	// Add flags
	readCmd.Flags().IntP("chapter", "c", 1, "Chapter to open")
	readCmd.Flags().BoolP("autoplay", "p", false, "Start narrating once the chapter is loaded")
	listenCmd.Flags().IntP("chapter", "c", 1, "Chapter to open")
	listenCmd.Flags().BoolP("autoplay", "p", true, "Start narrating once the chapter is loaded")
	segmentCmd.Flags().BoolP("join", "j", false, "Print the sentences joined back into prose")
	importCmd.Flags().StringP("title", "t", "", "Book title (defaults to the id)")
	importCmd.Flags().StringP("author", "a", "", "Book author")
	importCmd.Flags().StringP("language", "l", "", "Book language (defaults to tts.language)")

	rootCmd.AddCommand(readCmd, listenCmd, speakCmd, segmentCmd, listCmd, importCmd, voicesCmd, enginesCmd, settingsCmd)

	// Add cache commands
	a.AddCacheCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		a.Shutdown()
		os.Exit(1)
	}
}
