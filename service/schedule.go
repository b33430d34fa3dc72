package service

import (
	"time"

	"lecture2obs/config"
)

// scheduleBufferMinutes widens every timetable slot on both sides, so a
// recording toggled a few minutes early or late still picks up its course.
const scheduleBufferMinutes = 15

// MatchSchedule resolves (course, title prefix) for a timestamp from the
// weekly timetable. A timestamp matches an entry when it falls inside
// [start-buffer, end+buffer] on the entry's weekday; with several matches
// the earliest-starting entry wins. No match returns the default course and
// an empty title prefix.
func MatchSchedule(entries []config.ScheduleEntry, at time.Time, defaultCourse string) (string, string) {
	minuteOfDay := at.Hour()*60 + at.Minute()

	var best *config.ScheduleEntry
	for i := range entries {
		entry := &entries[i]
		if entry.Day != at.Weekday() {
			continue
		}
		if minuteOfDay < entry.Start-scheduleBufferMinutes || minuteOfDay > entry.End+scheduleBufferMinutes {
			continue
		}
		if best == nil || entry.Start < best.Start {
			best = entry
		}
	}

	if best == nil {
		return defaultCourse, ""
	}

	course := best.Course
	if course == "" {
		course = defaultCourse
	}
	return course, best.TitlePrefix
}
