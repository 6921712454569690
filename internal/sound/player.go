package sound

import (
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// playbackSampleRate is the rate the speaker is initialized with; decoded
// streams are resampled to it so files with differing rates can overlap.
const playbackSampleRate = beep.SampleRate(44100)

// Player decodes mp3 files and plays them on the default output device.
// Play blocks until playback finishes, so invoke it from a worker, not from
// the frame-reading loop.
type Player struct{}

// NewPlayer initializes the speaker. Call once at startup.
func NewPlayer() (*Player, error) {
	if err := speaker.Init(playbackSampleRate, playbackSampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}
	return &Player{}, nil
}

// Play decodes the mp3 at path and blocks until it has finished playing.
func (p *Player) Play(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sound file: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode sound file %s: %w", path, err)
	}
	defer streamer.Close()

	resampled := beep.Resample(4, format.SampleRate, playbackSampleRate, streamer)

	done := make(chan struct{})
	speaker.Play(beep.Seq(resampled, beep.Callback(func() {
		close(done)
	})))
	<-done

	return nil
}
