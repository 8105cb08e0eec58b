package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"agrinova-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingPublisher struct {
	mu    sync.Mutex
	ticks [][]models.SensorReading
	err   error
}

func (p *recordingPublisher) Enabled() bool { return true }

func (p *recordingPublisher) Publish(_ context.Context, readings []models.SensorReading) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, readings)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ticks)
}

func TestStepStaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, seed := range SeedSensors(now) {
		r := seed
		for i := 0; i < 2000; i++ {
			prev := r
			r = Step(r, rng, now)

			assert.InDelta(t, prev.Temperature, r.Temperature, tempDelta)
			assert.InDelta(t, prev.WaterUsage, r.WaterUsage, waterDelta)
			assert.GreaterOrEqual(t, r.Humidity, humidityMin)
			assert.LessOrEqual(t, r.Humidity, humidityMax)
			assert.GreaterOrEqual(t, r.SoilMoisture, soilMin)
			assert.LessOrEqual(t, r.SoilMoisture, soilMax)
		}
		assert.Equal(t, seed.ID, r.ID)
	}
}

func TestStepClampsAtEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := models.SensorReading{Humidity: 90, SoilMoisture: 40}
	for i := 0; i < 100; i++ {
		r = Step(r, rng, time.Time{})
		require.LessOrEqual(t, r.Humidity, 90.0)
		require.GreaterOrEqual(t, r.SoilMoisture, 40.0)
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, SensorStatusActive, Status(models.SensorReading{SoilMoisture: 50, Temperature: 35}))
	assert.Equal(t, SensorStatusWarning, Status(models.SensorReading{SoilMoisture: 49.9, Temperature: 20}))
	assert.Equal(t, SensorStatusWarning, Status(models.SensorReading{SoilMoisture: 70, Temperature: 35.1}))
}

func TestFeedTickPublishes(t *testing.T) {
	clock := newFakeClock()
	pub := &recordingPublisher{}
	f := NewFeed(FeedOptions{Seed: 7, Clock: clock, Publisher: pub})

	before := f.Snapshot()
	clock.Advance(5 * time.Second)
	after := f.Tick(context.Background())

	require.Len(t, after, 4)
	assert.Equal(t, 1, pub.count())
	assert.NotEqual(t, before[0].Temperature, after[0].Temperature)
	assert.Equal(t, clock.Now(), after[0].LastUpdate)
	assert.Equal(t, after, f.Snapshot())
}

func TestFeedTickSurvivesPublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	f := NewFeed(FeedOptions{Seed: 7, Clock: newFakeClock(), Publisher: pub})

	assert.Len(t, f.Tick(context.Background()), 4)
	assert.Len(t, f.Tick(context.Background()), 4)
	assert.Equal(t, 2, pub.count())
}

func TestFeedGet(t *testing.T) {
	f := NewFeed(FeedOptions{Seed: 1, Clock: newFakeClock()})

	s, err := f.Get("sensor-003")
	require.NoError(t, err)
	assert.Equal(t, "Greenhouse Sensor", s.Name)

	_, err = f.Get("sensor-999")
	assert.ErrorIs(t, err, ErrSensorNotFound)
}

func TestFeedHistory(t *testing.T) {
	clock := newFakeClock()
	f := NewFeed(FeedOptions{Seed: 3, Clock: clock})

	h := f.History("sensor-001", 6)
	require.Len(t, h, 6)
	for i, r := range h {
		assert.Equal(t, clock.Now().Add(-time.Duration(i)*time.Hour), r.LastUpdate)
		assert.InDelta(t, 25, r.Temperature, 2.5+0.05)
		assert.GreaterOrEqual(t, r.WaterUsage, 0.0)
	}

	assert.Len(t, f.History("sensor-001", 0), 24)
	assert.Empty(t, f.History("nope", 5))
}

func TestFeedSummary(t *testing.T) {
	f := NewFeed(FeedOptions{Seed: 1, Clock: newFakeClock()})

	s := f.Summary()
	assert.Equal(t, 475.0, s.TotalWaterUsage)
	assert.Equal(t, 71.3, s.AvgSoilMoisture)
	assert.Equal(t, 25.0, s.AvgTemperature)
	assert.Equal(t, 4, s.ActiveSensors)
	assert.Equal(t, 0, s.WarningSensors)
}

func TestFeedRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub := &recordingPublisher{}
	f := NewFeed(FeedOptions{Interval: 5 * time.Millisecond, Seed: 9, Publisher: pub})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestFeedRunFollowsClock(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	pub := &recordingPublisher{}
	f := NewFeed(FeedOptions{Interval: 5 * time.Second, Seed: 4, Clock: clock, Publisher: pub})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()
	require.Eventually(t, func() bool { return clock.activeTickers() == 1 }, time.Second, time.Millisecond)

	clock.Advance(4 * time.Second)
	assert.Equal(t, 0, pub.count())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, time.Millisecond)

	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("feed did not stop")
	}
	assert.Equal(t, 0, clock.activeTickers())
}
