package scheduler

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigion/trigion/pkg/protocol"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("*/5 * * * *"))
	assert.NoError(t, Validate("@every 1h"))
	assert.Error(t, Validate("not a cron"))
	assert.Error(t, Validate("61 * * * *"))
}

func TestCron_Schedule_InvalidExpression(t *testing.T) {
	s := NewCron(slog.Default())

	_, err := s.Schedule("nope", func() {}, protocol.ScheduleOptions{})
	require.Error(t, err)
}

func TestCron_Schedule_FiresAndCancels(t *testing.T) {
	s := NewCron(slog.Default())

	ticks := make(chan struct{}, 10)

	handle, err := s.Schedule("@every 100ms", func() {
		ticks <- struct{}{}
	}, protocol.ScheduleOptions{})
	require.NoError(t, err)

	select {
	case <-ticks:
	case <-time.After(3 * time.Second):
		t.Fatal("cron job never fired")
	}

	handle.Cancel()

	// Drain anything already queued, then verify no further ticks arrive.
	time.Sleep(200 * time.Millisecond)

	for len(ticks) > 0 {
		<-ticks
	}

	select {
	case <-ticks:
		t.Fatal("cron job fired after cancel")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestCron_Schedule_Timezone(t *testing.T) {
	s := NewCron(slog.Default())

	handle, err := s.Schedule("0 9 * * *", func() {}, protocol.ScheduleOptions{Timezone: "America/Sao_Paulo"})
	require.NoError(t, err)

	handle.Cancel()
}
