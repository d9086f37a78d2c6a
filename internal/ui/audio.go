package ui

import (
	"github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/gharland/dmgcore/internal/apu"
)

const sampleRate = 48000

// apuStream implements io.Reader over the APU register sink. The core does
// not synthesize samples (SPEC_FULL.md §2: out of scope), so this adapter's
// only job is to report silence (whatever NR52's power bit says),
// leaving a socket a future synthesizer can fill without touching the host
// loop or the ebiten/audio wiring.
type apuStream struct {
	a *apu.APU
}

func (s *apuStream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// audioOut owns the ebiten audio context and a player pulling from apuStream.
type audioOut struct {
	player *audio.Player
}

func newAudioOut(a *apu.APU) (*audioOut, error) {
	ctx := audio.NewContext(sampleRate)
	player, err := ctx.NewPlayer(&apuStream{a: a})
	if err != nil {
		return nil, err
	}
	return &audioOut{player: player}, nil
}

func (o *audioOut) start() { o.player.Play() }
