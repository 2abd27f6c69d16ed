package models

import "time"

// Times - набор временных меток группы или записи
type Times struct {
	Creation         time.Time
	LastModification time.Time
	LastAccess       time.Time
	Expiry           time.Time
	LocationChanged  time.Time
	Expires          bool
	UsageCount       uint64
}

// Now returns the current UTC time with second precision, which is the
// precision the container stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// NewTimes returns a set where every timestamp is now.
func NewTimes() Times {
	now := Now()
	return Times{
		Creation:         now,
		LastModification: now,
		LastAccess:       now,
		LocationChanged:  now,
	}
}

// CompareTimes compares at second precision.
func CompareTimes(a, b time.Time) int {
	return a.Truncate(time.Second).Compare(b.Truncate(time.Second))
}

// MaxTime returns the later of two times.
func MaxTime(a, b time.Time) time.Time {
	if CompareTimes(a, b) >= 0 {
		return a
	}
	return b
}

// IsExpired reports whether the expiry is enabled and has passed at t.
func (t Times) IsExpired(at time.Time) bool {
	return t.Expires && !t.Expiry.After(at)
}

func (t Times) equal(o Times, opts CompareOptions) bool {
	if CompareTimes(t.Creation, o.Creation) != 0 {
		return false
	}
	if opts&CompareIgnoreLastMod == 0 && CompareTimes(t.LastModification, o.LastModification) != 0 {
		return false
	}
	if opts&CompareIgnoreLastAccess == 0 {
		if CompareTimes(t.LastAccess, o.LastAccess) != 0 || t.UsageCount != o.UsageCount {
			return false
		}
	}
	if t.Expires != o.Expires || CompareTimes(t.Expiry, o.Expiry) != 0 {
		return false
	}
	return true
}
