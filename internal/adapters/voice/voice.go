// Package voice wraps OpenAI Whisper transcription and TTS synthesis, and
// sequences them around the conversation loop: audio in, audio out.
package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

// Config defaults to the nova voice at slightly reduced speed, which suits
// elderly listeners.
type Config struct {
	STTModel string  `envconfig:"VOICE_STT_MODEL" default:"whisper-1"`
	TTSModel string  `envconfig:"VOICE_TTS_MODEL" default:"tts-1"`
	Voice    string  `envconfig:"VOICE_TTS_VOICE" default:"nova"`
	Speed    float64 `envconfig:"VOICE_TTS_SPEED" default:"0.9"`
	Language string  `envconfig:"VOICE_LANGUAGE" default:"es"`
}

// Responder resolves transcribed text to a reply; the conversation-loop
// runner satisfies it.
type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// audioAPI is the slice of the OpenAI client the pipeline needs;
// *openai.Client satisfies it.
type audioAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

type Pipeline struct {
	cfg Config
	api audioAPI
}

func New(cfg Config, api audioAPI) *Pipeline {
	return &Pipeline{cfg: cfg, api: api}
}

// Transcribe converts raw audio bytes to Spanish text.
func (p *Pipeline) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := p.api.CreateTranscription(ctx, openai.AudioRequest{
		Model: p.cfg.STTModel,
		// The API requires a filename to detect the container format.
		FilePath: "audio.webm",
		Reader:   bytes.NewReader(audio),
		Language: p.cfg.Language,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return resp.Text, nil
}

// Synthesize converts reply text to MP3 bytes. An empty voice falls back to
// the configured default.
func (p *Pipeline) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = p.cfg.Voice
	}
	resp, err := p.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.cfg.TTSModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          p.cfg.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	return audio, nil
}

// Process runs the full pipeline: speech-to-text, conversation loop,
// text-to-speech. Returns the reply audio plus both transcripts.
func (p *Pipeline) Process(ctx context.Context, audio []byte, voice string, respond Responder) (replyAudio []byte, transcript, reply string, err error) {
	transcript, err = p.Transcribe(ctx, audio)
	if err != nil {
		return nil, "", "", err
	}
	logx.Debug().Str("transcript", transcript).Msg("voice message transcribed")

	reply, err = respond.Respond(ctx, transcript)
	if err != nil {
		return nil, transcript, "", err
	}

	replyAudio, err = p.Synthesize(ctx, reply, voice)
	if err != nil {
		return nil, transcript, reply, err
	}
	return replyAudio, transcript, reply, nil
}
