package pelican

import (
	"math"
	"strconv"
	"sync"
	"time"
)

// Timestamp is a reading of the controller clock in milliseconds
type Timestamp int64

// Never marks a timestamp that has not happened yet
const Never Timestamp = math.MinInt64 / 2

// Sub returns the duration t-u
func (t Timestamp) Sub(u Timestamp) time.Duration {
	return time.Duration(t-u) * time.Millisecond
}

// Add returns t+d truncated to millisecond resolution
func (t Timestamp) Add(d time.Duration) Timestamp {
	return t + Timestamp(d.Milliseconds())
}

// String renders the timestamp as "t=<ms>"
func (t Timestamp) String() string {
	if t == Never {
		return "never"
	}
	return "t=" + strconv.FormatInt(int64(t), 10)
}

// At converts a millisecond offset into a Timestamp
func At(milliseconds int64) Timestamp {
	return Timestamp(milliseconds)
}

// Clock supplies a monotonically increasing time reading
type Clock interface {
	Now() Timestamp
}

// SystemClock reads the host monotonic clock relative to its creation
type SystemClock struct {
	origin time.Time
}

// NewSystemClock creates a clock whose zero is the moment of creation
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

// Now returns milliseconds elapsed since the clock was created
func (c *SystemClock) Now() Timestamp {
	return Timestamp(time.Since(c.origin).Milliseconds())
}

// ManualClock is a clock advanced explicitly by its owner
type ManualClock struct {
	mutex sync.RWMutex
	now   Timestamp
}

// NewManualClock creates a manual clock reading start
func NewManualClock(start Timestamp) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading
func (c *ManualClock) Now() Timestamp {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.now
}

// Set moves the clock to t. Moving backwards is ignored.
func (c *ManualClock) Set(t Timestamp) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if t > c.now {
		c.now = t
	}
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) Timestamp {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return c.now
}
