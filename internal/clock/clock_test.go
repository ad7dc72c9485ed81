// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClockSleepAdvancesAndRecords(t *testing.T) {
	c := NewMockClock(time.Unix(1000, 0))

	c.Sleep(4 * time.Second)
	c.Sleep(2 * time.Second)

	assert.Equal(t, time.Unix(1006, 0), c.Now())
	assert.Equal(t, []time.Duration{4 * time.Second, 2 * time.Second}, c.Slept())
	assert.Equal(t, 6*time.Second, c.TotalSlept())
}

func TestMockClockSetAndAdvance(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	c.Set(time.Unix(500, 0))
	assert.Equal(t, time.Unix(500, 0), c.Now())

	c.Advance(time.Minute)
	assert.Equal(t, time.Unix(560, 0), c.Now())
}

func TestMockClockAfterFiresImmediately(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	select {
	case <-c.After(time.Hour):
	default:
		t.Fatal("After should deliver immediately on the mock clock")
	}
	assert.Equal(t, time.Unix(3600, 0), c.Now())
}
