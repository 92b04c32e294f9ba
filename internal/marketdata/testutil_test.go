package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// fakeSource returns canned payloads and records every call.
type fakeSource struct {
	mu       sync.Mutex
	payloads map[string][]byte
	errs     map[string]error
	calls    []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{payloads: map[string][]byte{}, errs: map[string]error{}}
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) QueryDailySeries(_ context.Context, symbol string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, symbol)
	if err, ok := s.errs[symbol]; ok {
		return nil, err
	}
	if p, ok := s.payloads[symbol]; ok {
		return p, nil
	}
	return nil, errors.New("no canned payload")
}

func (s *fakeSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// seriesJSON builds a TIME_SERIES_DAILY payload from date -> close.
func seriesJSON(closes map[string]string) []byte {
	ts := make(map[string]map[string]string, len(closes))
	for day, c := range closes {
		ts[day] = map[string]string{
			"1. open":   c,
			"2. high":   c,
			"3. low":    c,
			"4. close":  c,
			"5. volume": "1000",
		}
	}
	b, _ := json.Marshal(map[string]any{
		"Meta Data":           map[string]string{"1. Information": "Daily Prices"},
		"Time Series (Daily)": ts,
	})
	return b
}

// fakeClock advances only when the pacer sleeps.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func (c *fakeClock) Pacer(interval time.Duration) *Pacer {
	return NewPacer(interval, WithClock(c.Now), WithSleeper(c.Sleep))
}
