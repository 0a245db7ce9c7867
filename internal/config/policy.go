package config

import (
    "log"
    "time"
    _ "time/tzdata" // BUSINESS_TIMEZONE must resolve in minimal images
)

// ReservationPolicy holds the admission-control and check-in rules applied
// by the reservation service.  The defaults are the production rules; the
// environment can override them for staging stores with different hours.
type ReservationPolicy struct {
    MinLeadTime     time.Duration  // earliest reservation relative to now
    MaxLeadTime     time.Duration  // latest reservation relative to now
    OpenHour        int            // first bookable hour, inclusive
    CloseHour       int            // closing hour, exclusive
    DuplicateWindow time.Duration  // ± span in which a member may hold one reservation
    CapacityWindow  time.Duration  // ± span counted against SlotCapacity
    SlotCapacity    int            // reservations allowed per capacity window
    CheckInEarly    time.Duration  // check-in opens this long before the slot
    CheckInLate     time.Duration  // check-in closes this long after the slot
    SlotStep        time.Duration  // timetable granularity
    Location        *time.Location // time zone of business hours
    NoShowStatus    string         // NO_SHOW or CANCELLED
}

// DefaultReservationPolicy returns the standard rules in UTC.
func DefaultReservationPolicy() ReservationPolicy {
    return ReservationPolicy{
        MinLeadTime:     time.Hour,
        MaxLeadTime:     30 * 24 * time.Hour,
        OpenHour:        10,
        CloseHour:       22,
        DuplicateWindow: time.Hour,
        CapacityWindow:  30 * time.Minute,
        SlotCapacity:    5,
        CheckInEarly:    10 * time.Minute,
        CheckInLate:     30 * time.Minute,
        SlotStep:        30 * time.Minute,
        Location:        time.UTC,
        NoShowStatus:    "NO_SHOW",
    }
}

// LoadReservationPolicy applies RESERVATION_* and BUSINESS_TIMEZONE
// overrides on top of the defaults.
func LoadReservationPolicy() ReservationPolicy {
    p := DefaultReservationPolicy()
    p.MinLeadTime = envDur("RESERVATION_MIN_LEAD", p.MinLeadTime)
    p.MaxLeadTime = envDur("RESERVATION_MAX_LEAD", p.MaxLeadTime)
    p.OpenHour = envInt("RESERVATION_OPEN_HOUR", p.OpenHour)
    p.CloseHour = envInt("RESERVATION_CLOSE_HOUR", p.CloseHour)
    p.DuplicateWindow = envDur("RESERVATION_DUPLICATE_WINDOW", p.DuplicateWindow)
    p.CapacityWindow = envDur("RESERVATION_CAPACITY_WINDOW", p.CapacityWindow)
    p.SlotCapacity = envInt("RESERVATION_SLOT_CAPACITY", p.SlotCapacity)
    p.CheckInEarly = envDur("RESERVATION_CHECKIN_EARLY", p.CheckInEarly)
    p.CheckInLate = envDur("RESERVATION_CHECKIN_LATE", p.CheckInLate)
    p.SlotStep = envDur("RESERVATION_SLOT_STEP", p.SlotStep)

    switch s := envStr("RESERVATION_NO_SHOW_STATUS", p.NoShowStatus); s {
    case "NO_SHOW", "CANCELLED":
        p.NoShowStatus = s
    default:
        log.Fatalf("invalid RESERVATION_NO_SHOW_STATUS: %q", s)
    }

    if tz := envStr("BUSINESS_TIMEZONE", ""); tz != "" {
        loc, err := time.LoadLocation(tz)
        if err != nil {
            log.Fatalf("invalid BUSINESS_TIMEZONE %q: %v", tz, err)
        }
        p.Location = loc
    }
    if p.SlotCapacity < 1 {
        p.SlotCapacity = 1
    }
    if p.SlotStep <= 0 {
        p.SlotStep = 30 * time.Minute
    }
    return p
}
