package gofat

import (
	"time"
)

// fatEpoch is the first date a FAT timestamp can hold.
var fatEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseDate reads a FAT date stamp:
//  Bits 0–4:  Day of month, 1–31.
//  Bits 5–8:  Month of year, 1–12.
//  Bits 9–15: Years since 1980, 0–127.
// The result always has a time of 00:00:00 UTC.
//
// Day or month 0 are invalid, time.Time{} is returned for them so that time.Time.IsZero() can be used.
// A month bigger than 12 rolls over into the next year.
func ParseDate(input uint16) time.Time {
	dayOfMonth := input & 0x1F
	monthOfYear := input & 0x1E0 >> 5
	yearSince1980 := input & 0xFE00 >> 9

	if dayOfMonth == 0 || monthOfYear == 0 {
		return time.Time{}
	}

	return time.Date(1980+int(yearSince1980), time.Month(monthOfYear), int(dayOfMonth), 0, 0, 0, 0, time.UTC)
}

// ParseTime reads a FAT time stamp with a granularity of two seconds:
//  Bits 0–4:   2-second count, 0–29.
//  Bits 5–10:  Minutes, 0–59.
//  Bits 11–15: Hours, 0–23.
// The result is on January 1, year 1, so midnight is time.Time{}.
// Out of range values are capped at 23:59:59.
func ParseTime(input uint16) time.Time {
	seconds := int(input&0x1F) * 2
	minutes := input & 0x7E0 >> 5
	hours := input & 0xF800 >> 11

	result := time.Date(1, 1, 1, int(hours), int(minutes), seconds, 0, time.UTC)

	if result.Day() > 1 {
		return time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)
	}

	return result
}

// EncodeDate converts t into a FAT date stamp.
// Dates before 1980 are clamped to 1980-01-01, dates after 2107 to 2107-12-31.
func EncodeDate(t time.Time) uint16 {
	t = clampFATTime(t.UTC())
	return uint16(t.Year()-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
}

// EncodeTime converts t into a FAT time stamp, odd seconds are rounded down.
func EncodeTime(t time.Time) uint16 {
	t = clampFATTime(t.UTC())
	return uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
}

// encodeTenth returns the 10ms units which the two second granularity of EncodeTime drops.
func encodeTenth(t time.Time) byte {
	t = clampFATTime(t.UTC())
	return byte((t.Second()%2)*100 + t.Nanosecond()/int(10*time.Millisecond))
}

func clampFATTime(t time.Time) time.Time {
	if t.Before(fatEpoch) {
		return fatEpoch
	}
	if t.Year() > 2107 {
		return time.Date(2107, 12, 31, 23, 59, 58, 0, time.UTC)
	}
	return t
}

// combineDateTime joins a FAT date and time stamp. It returns time.Time{} for an invalid date.
func combineDateTime(date, clock uint16) time.Time {
	d := ParseDate(date)
	if d.IsZero() {
		return time.Time{}
	}
	c := ParseTime(clock)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC)
}
