package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
)

const ChannelVoice = "voice"

// Synthesizer es el port hacia el motor de síntesis de voz, que es un
// colaborador externo (proceso TTS local, servicio remoto, etc.).
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// VoiceChannel anuncia el recordatorio en voz alta en el dispositivo del
// usuario.
type VoiceChannel struct {
	synth Synthesizer
}

func NewVoiceChannel(synth Synthesizer) *VoiceChannel {
	return &VoiceChannel{synth: synth}
}

func (c *VoiceChannel) Name() string { return ChannelVoice }

func (c *VoiceChannel) Send(ctx context.Context, n Notification) error {
	if c.synth == nil {
		return errors.New("voice: synthesizer not configured")
	}
	text := strings.TrimSpace(n.Body)
	if text == "" {
		text = n.Subject
	}
	return c.synth.Speak(ctx, text)
}

// LogSynthesizer deja el anuncio en el log. Sirve como default cuando no hay
// motor TTS configurado y en tests.
type LogSynthesizer struct {
	Log logger.Logger
}

func (s LogSynthesizer) Speak(ctx context.Context, text string) error {
	s.Log.Info("voice announcement", map[string]any{"text": text})
	return nil
}
