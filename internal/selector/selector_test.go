package selector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cheluen/new-api-workers/internal/cache"
	"github.com/cheluen/new-api-workers/internal/domain"
	"github.com/cheluen/new-api-workers/internal/registry"
)

func enabledChannel(id int64, name string, weight int) domain.Channel {
	return domain.Channel{
		ID:     id,
		Name:   name,
		Type:   domain.ChannelTypeOpenAI,
		Models: "gpt-4o",
		Status: domain.ChannelStatusEnabled,
		Weight: weight,
	}
}

func newTestSelector(t *testing.T, channels []domain.Channel, opts ...Option) *Selector {
	t.Helper()
	reg := registry.NewMemory()
	reg.Replace(channels)
	return New(reg, cache.NewMemory(), opts...)
}

func TestSelectNoChannels(t *testing.T) {
	s := newTestSelector(t, nil)

	_, err := s.Select(context.Background(), "gpt-4o")
	if !errors.Is(err, domain.ErrNoChannelAvailable) {
		t.Fatalf("Select() error = %v, want ErrNoChannelAvailable", err)
	}
}

func TestSelectNoChannelForModel(t *testing.T) {
	s := newTestSelector(t, []domain.Channel{enabledChannel(1, "a", 10)})

	_, err := s.Select(context.Background(), "claude-3-5-sonnet")
	if !errors.Is(err, domain.ErrNoChannelAvailable) {
		t.Fatalf("Select() error = %v, want ErrNoChannelAvailable", err)
	}
}

func TestSelectSingleChannel(t *testing.T) {
	s := newTestSelector(t, []domain.Channel{enabledChannel(1, "a", 10)})

	ch, err := s.Select(context.Background(), "gpt-4o")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if ch.ID != 1 {
		t.Errorf("Select() picked channel %d, want 1", ch.ID)
	}
}

func TestSelectWeightedDraw(t *testing.T) {
	channels := []domain.Channel{
		enabledChannel(1, "a", 3),
		enabledChannel(2, "b", 7),
	}

	// Fix the draw to each boundary value and check which channel the
	// subtract walk lands on. Total weight is 10; draws 0..2 land on the
	// first channel, 3..9 on the second.
	cases := []struct {
		draw   int
		wantID int64
	}{
		{0, 1},
		{2, 1},
		{3, 2},
		{9, 2},
	}

	for _, tc := range cases {
		s := newTestSelector(t, channels, WithRand(func(n int) int {
			if n != 10 {
				t.Fatalf("randInt bound = %d, want 10", n)
			}
			return tc.draw
		}))
		ch, err := s.Select(context.Background(), "gpt-4o")
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if ch.ID != tc.wantID {
			t.Errorf("draw %d picked channel %d, want %d", tc.draw, ch.ID, tc.wantID)
		}
	}
}

func TestSelectSkipsZeroWeight(t *testing.T) {
	channels := []domain.Channel{
		enabledChannel(1, "idle", 0),
		enabledChannel(2, "active", 5),
	}

	for draw := 0; draw < 5; draw++ {
		d := draw
		s := newTestSelector(t, channels, WithRand(func(int) int { return d }))
		ch, err := s.Select(context.Background(), "gpt-4o")
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if ch.ID != 2 {
			t.Errorf("draw %d picked zero-weight channel", d)
		}
	}
}

func TestSelectAllZeroWeights(t *testing.T) {
	channels := []domain.Channel{
		enabledChannel(1, "a", 0),
		enabledChannel(2, "b", 0),
	}
	s := newTestSelector(t, channels, WithRand(func(int) int {
		t.Fatal("randInt should not be consulted when total weight is zero")
		return 0
	}))

	ch, err := s.Select(context.Background(), "gpt-4o")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if ch.ID != 1 {
		t.Errorf("Select() picked channel %d, want first channel", ch.ID)
	}
}

func TestSelectDistribution(t *testing.T) {
	channels := []domain.Channel{
		enabledChannel(1, "a", 1),
		enabledChannel(2, "b", 9),
	}
	s := newTestSelector(t, channels)

	const draws = 5000
	counts := map[int64]int{}
	for i := 0; i < draws; i++ {
		ch, err := s.Select(context.Background(), "gpt-4o")
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		counts[ch.ID]++
	}

	// Expect roughly 10% / 90%. Allow a generous band so the test stays
	// stable across random seeds.
	if frac := float64(counts[1]) / draws; frac < 0.03 || frac > 0.20 {
		t.Errorf("weight-1 channel picked %.1f%% of draws, want ~10%%", frac*100)
	}
}

func TestSelectServesStaleWithinTTL(t *testing.T) {
	reg := registry.NewMemory()
	reg.Replace([]domain.Channel{enabledChannel(1, "a", 10)})

	clock := time.Unix(1700000000, 0)
	c := cache.NewMemoryWithClock(func() time.Time { return clock })
	s := New(reg, c, WithTTL(60*time.Second))

	if _, err := s.Select(context.Background(), "gpt-4o"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	// Registry now disables the channel; within the TTL the cached list
	// still serves it.
	reg.Replace(nil)
	clock = clock.Add(30 * time.Second)
	if _, err := s.Select(context.Background(), "gpt-4o"); err != nil {
		t.Fatalf("Select() within TTL error = %v, want cached hit", err)
	}

	// Past the TTL the change becomes visible.
	clock = clock.Add(31 * time.Second)
	if _, err := s.Select(context.Background(), "gpt-4o"); !errors.Is(err, domain.ErrNoChannelAvailable) {
		t.Fatalf("Select() past TTL error = %v, want ErrNoChannelAvailable", err)
	}
}

type failingRegistry struct{}

func (failingRegistry) ListEnabledForModel(context.Context, string) ([]domain.Channel, error) {
	return nil, errors.New("connection refused")
}
func (failingRegistry) ListEnabled(context.Context) ([]domain.Channel, error) {
	return nil, errors.New("connection refused")
}
func (failingRegistry) GetByID(context.Context, int64) (*domain.Channel, error) {
	return nil, errors.New("connection refused")
}

func TestSelectRegistryFailure(t *testing.T) {
	s := New(failingRegistry{}, cache.NewMemory())

	_, err := s.Select(context.Background(), "gpt-4o")
	if err == nil {
		t.Fatal("Select() error = nil, want registry failure")
	}
	if errors.Is(err, domain.ErrNoChannelAvailable) {
		t.Fatal("registry failure must not masquerade as no_channel_available")
	}
}
