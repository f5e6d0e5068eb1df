package tts

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"

	"readaloud/internal/storage"
)

// synthesis requests are limited to 5000 bytes of input
const chunkLimit = 5000

// GoogleEngine synthesizes MP3 audio with Cloud Text-to-Speech, caches it
// in a storage adapter and plays it through the local speaker.
type GoogleEngine struct {
	client *texttospeech.Client
	store  storage.Adapter
	prefix string
	voice  string
	log    logrus.FieldLogger

	speakerOnce sync.Once
	speakerErr  error
	sampleRate  beep.SampleRate
}

func newGoogleEngine(config Config, store storage.Adapter, log logrus.FieldLogger) (*GoogleEngine, error) {
	if store == nil {
		return nil, errors.New("google engine requires a storage adapter for its audio cache")
	}
	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	prefix := config.CachePrefix
	if prefix == "" {
		prefix = "audio"
	}

	return &GoogleEngine{
		client: client,
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		voice:  config.Voice,
		log:    log.WithField("engine", EngineTypeGoogle.String()),
	}, nil
}

func (g *GoogleEngine) Name() string {
	return EngineTypeGoogle.String()
}

func (g *GoogleEngine) Close() error {
	return g.client.Close()
}

func (g *GoogleEngine) Speak(ctx context.Context, text string, opts Options) error {
	voice := g.voice
	if opts.Voice != "" && opts.Voice != "default" {
		voice = opts.Voice
	}

	var streams []beep.Streamer
	for i, chunk := range splitIntoChunks(text, chunkLimit) {
		audio, err := g.audio(ctx, chunk, voice, opts)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}

		streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
		if err != nil {
			return fmt.Errorf("failed to decode MP3 chunk %d: %w", i, err)
		}
		defer streamer.Close()

		if err := g.initSpeaker(format); err != nil {
			return err
		}
		var s beep.Streamer = streamer
		if format.SampleRate != g.sampleRate {
			s = beep.Resample(4, format.SampleRate, g.sampleRate, streamer)
		}
		streams = append(streams, s)
	}
	if len(streams) == 0 {
		return nil
	}

	return g.play(ctx, beep.Seq(streams...), opts.Volume)
}

// play blocks until the streamer drains or ctx is cancelled
func (g *GoogleEngine) play(ctx context.Context, s beep.Streamer, volume float64) error {
	ctrl := &beep.Ctrl{Streamer: &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   gain(volume),
		Silent:   volume <= 0,
	}}

	done := make(chan struct{})
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		return ctx.Err()
	}
}

// gain maps a linear 0..1 volume onto the log2 scale effects.Volume expects
func gain(volume float64) float64 {
	if volume <= 0 {
		return 0
	}
	return math.Log2(volume)
}

func (g *GoogleEngine) initSpeaker(format beep.Format) error {
	g.speakerOnce.Do(func() {
		g.sampleRate = format.SampleRate
		g.speakerErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	return g.speakerErr
}

// audio returns MP3 bytes for text, synthesizing and caching on a miss
func (g *GoogleEngine) audio(ctx context.Context, text, voice string, opts Options) ([]byte, error) {
	key := fmt.Sprintf("%s/%s.mp3", g.prefix, cacheKey(text, voice, opts))

	data, err := storage.ReadAll(ctx, g.store, key)
	if err == nil {
		g.log.WithField("key", key).Debug("using cached audio")
		return data, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		g.log.WithError(err).WithField("key", key).Warn("audio cache read failed")
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices often don't support speakingRate
	if !strings.Contains(strings.ToLower(voice), "chirp") && opts.Rate > 0 {
		audioCfg.SpeakingRate = opts.Rate
	}

	params := &texttospeechpb.VoiceSelectionParams{
		LanguageCode: languageCode(opts.Language),
	}
	if voice != "" && voice != "default" {
		params.Name = voice
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice:       params,
		AudioConfig: audioCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize: %w", err)
	}

	if err := g.store.Put(ctx, key, bytes.NewReader(resp.AudioContent)); err != nil {
		g.log.WithError(err).WithField("key", key).Warn("failed to cache audio")
	}
	return resp.AudioContent, nil
}

func (g *GoogleEngine) Voices(ctx context.Context) ([]string, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, err
	}
	voices := []string{}
	for _, v := range resp.Voices {
		voices = append(voices, v.Name)
	}
	return voices, nil
}

// languageCode widens bare language tags to the BCP-47 region form the API expects
func languageCode(lang string) string {
	switch strings.ToLower(lang) {
	case "", "en":
		return "en-US"
	case "vi":
		return "vi-VN"
	default:
		return lang
	}
}

func cacheKey(text, voice string, opts Options) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%s|%.2f", text, voice, opts.Language, opts.Rate)))
	return fmt.Sprintf("%x", sum)
}

// splitIntoChunks cuts text into pieces of at most limit bytes without
// splitting a UTF-8 sequence. A rune longer than limit gets a chunk of its own.
func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		end := 0
		for end < len(text) {
			_, size := utf8.DecodeRuneInString(text[end:])
			if end+size > limit {
				break
			}
			end += size
		}
		if end == 0 {
			_, end = utf8.DecodeRuneInString(text)
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
