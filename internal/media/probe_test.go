package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProbeParsesDuration(t *testing.T) {
	var gotBinary string
	var gotArgs []string

	prober := NewFFProbeProber("ffprobe", time.Second)
	prober.Run = func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotBinary = binary
		gotArgs = args
		return []byte(`{"format":{"duration":"123.456"}}`), nil
	}

	duration, err := prober.Probe(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if duration != 123.456 {
		t.Fatalf("expected 123.456, got %v", duration)
	}
	if gotBinary != "ffprobe" {
		t.Fatalf("expected ffprobe binary, got %q", gotBinary)
	}
	if len(gotArgs) == 0 || gotArgs[len(gotArgs)-1] != "/tmp/clip.mp4" {
		t.Fatalf("expected the file path as the final argument, got %v", gotArgs)
	}
}

func TestProbeCommandFailure(t *testing.T) {
	prober := NewFFProbeProber("ffprobe", time.Second)
	prober.Run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}

	if _, err := prober.Probe(context.Background(), "/tmp/clip.mp4"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestProbeUnreadableOutput(t *testing.T) {
	cases := []struct {
		name   string
		output string
	}{
		{"missing duration", `{"format":{}}`},
		{"non-numeric duration", `{"format":{"duration":"N/A"}}`},
		{"negative duration", `{"format":{"duration":"-1"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prober := NewFFProbeProber("ffprobe", time.Second)
			prober.Run = func(context.Context, string, ...string) ([]byte, error) {
				return []byte(tc.output), nil
			}

			_, err := prober.Probe(context.Background(), "/tmp/clip.mp4")
			if !errors.Is(err, ErrUnreadableMedia) {
				t.Fatalf("expected ErrUnreadableMedia, got %v", err)
			}
		})
	}
}

func TestProbeDefaults(t *testing.T) {
	prober := NewFFProbeProber("  ", 0)
	if prober.Binary != "ffprobe" {
		t.Fatalf("expected default binary, got %q", prober.Binary)
	}
	if prober.Timeout <= 0 {
		t.Fatalf("expected a positive default timeout, got %v", prober.Timeout)
	}
}

type countingProber struct {
	calls    int
	duration float64
	err      error
}

func (c *countingProber) Probe(context.Context, string) (float64, error) {
	c.calls++
	return c.duration, c.err
}

func TestCachingProberReusesResults(t *testing.T) {
	base := &countingProber{duration: 42}
	cache := NewCachingProber(base, time.Minute)

	for range 3 {
		duration, err := cache.Probe(context.Background(), "/tmp/a.mp4")
		if err != nil {
			t.Fatalf("probe: %v", err)
		}
		if duration != 42 {
			t.Fatalf("expected 42, got %v", duration)
		}
	}
	if base.calls != 1 {
		t.Fatalf("expected a single underlying probe, got %d", base.calls)
	}

	// A different path is a different cache key.
	if _, err := cache.Probe(context.Background(), "/tmp/b.mp4"); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected a probe for the second path, got %d", base.calls)
	}
}

func TestCachingProberDoesNotCacheErrors(t *testing.T) {
	base := &countingProber{err: ErrUnreadableMedia}
	cache := NewCachingProber(base, time.Minute)

	for range 2 {
		if _, err := cache.Probe(context.Background(), "/tmp/a.mp4"); !errors.Is(err, ErrUnreadableMedia) {
			t.Fatalf("expected ErrUnreadableMedia, got %v", err)
		}
	}
	if base.calls != 2 {
		t.Fatalf("expected errors to bypass the cache, got %d calls", base.calls)
	}
}

func TestNilProberUnavailable(t *testing.T) {
	var prober *FFProbeProber
	if _, err := prober.Probe(context.Background(), "/tmp/a.mp4"); !errors.Is(err, ErrProberUnavailable) {
		t.Fatalf("expected ErrProberUnavailable, got %v", err)
	}

	var cache *CachingProber
	if _, err := cache.Probe(context.Background(), "/tmp/a.mp4"); !errors.Is(err, ErrProberUnavailable) {
		t.Fatalf("expected ErrProberUnavailable, got %v", err)
	}
}
