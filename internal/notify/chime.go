package notify

import (
	"io"
	"sync"
)

// Chime plays the audible alert.
type Chime interface {
	Play()
}

// NopChime is silent.
type NopChime struct{}

func (NopChime) Play() {}

// BellChime rings the terminal bell on w.
type BellChime struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBellChime(w io.Writer) *BellChime {
	return &BellChime{w: w}
}

func (b *BellChime) Play() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = b.w.Write([]byte{'\a'})
}
