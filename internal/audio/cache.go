package audio

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedSynthesizer remembers synthesized audio per voice and text.
type CachedSynthesizer struct {
	next  Synthesizer
	voice string
	cache *cache.Cache
}

func NewCachedSynthesizer(next Synthesizer, voice string, ttl time.Duration) *CachedSynthesizer {
	return &CachedSynthesizer{
		next:  next,
		voice: voice,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	key := c.voice + "\x00" + text
	if audio, ok := c.cache.Get(key); ok {
		return audio.(string), nil
	}
	audio, err := c.next.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, audio)
	return audio, nil
}
