package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_After(t *testing.T) {
	start := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	c := &MockClock{CurrentTime: start}

	fired := <-c.After(time.Second)
	assert.Equal(t, start.Add(time.Second), fired)
	assert.Equal(t, start.Add(time.Second), c.Now())

	c.Advance(time.Minute)
	<-c.After(50 * time.Millisecond)
	assert.Equal(t, []time.Duration{time.Second, 50 * time.Millisecond}, c.Waits())
	assert.Equal(t, start.Add(time.Second+time.Minute+50*time.Millisecond), c.Now())
}
