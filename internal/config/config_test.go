package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadReservationPolicy_Defaults(t *testing.T) {
    p := LoadReservationPolicy()
    assert.Equal(t, time.Hour, p.MinLeadTime)
    assert.Equal(t, 30*24*time.Hour, p.MaxLeadTime)
    assert.Equal(t, 10, p.OpenHour)
    assert.Equal(t, 22, p.CloseHour)
    assert.Equal(t, 5, p.SlotCapacity)
    assert.Equal(t, 30*time.Minute, p.CapacityWindow)
    assert.Equal(t, "NO_SHOW", p.NoShowStatus)
    assert.Equal(t, time.UTC, p.Location)
}

func TestLoadReservationPolicy_Overrides(t *testing.T) {
    t.Setenv("RESERVATION_SLOT_CAPACITY", "8")
    t.Setenv("RESERVATION_OPEN_HOUR", "9")
    t.Setenv("RESERVATION_NO_SHOW_STATUS", "CANCELLED")
    t.Setenv("BUSINESS_TIMEZONE", "Asia/Seoul")

    p := LoadReservationPolicy()
    assert.Equal(t, 8, p.SlotCapacity)
    assert.Equal(t, 9, p.OpenHour)
    assert.Equal(t, "CANCELLED", p.NoShowStatus)
    assert.Equal(t, "Asia/Seoul", p.Location.String())
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    c := LoadRateLimitConfig()
    assert.Equal(t, 1, c.Capacity)
    assert.Equal(t, 10*time.Second, c.TTL)
}

func TestLoadNotifyConfig(t *testing.T) {
    t.Setenv("NOTIFY_DRIVER", "KAFKA")
    t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

    c := LoadNotifyConfig()
    assert.Equal(t, "kafka", c.Driver)
    assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
    assert.Equal(t, "reservation.decided", c.DecidedQueue)
    assert.Equal(t, 256, c.QueueSize)
    assert.Equal(t, 5*time.Second, c.SendTimeout)
}

func TestLoadCacheConfig(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    t.Setenv("CACHE_TTL", "bogus")

    c := LoadCacheConfig()
    assert.True(t, c.Methods["GET"])
    assert.True(t, c.Methods["HEAD"])
    assert.Equal(t, 15*time.Second, c.TTL)
}
