package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleEntry is one immutable weekly timetable slot. Start and End are
// minutes since midnight on Day.
type ScheduleEntry struct {
	Day         time.Weekday
	Start       int
	End         int
	Course      string
	TitlePrefix string
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseSchedule turns the raw `schedule:` yaml block into validated entries.
// Malformed entries are a load-time ErrConfiguration, never a runtime one.
func parseSchedule(raw interface{}) ([]ScheduleEntry, error) {
	if raw == nil {
		return nil, nil
	}

	byDay, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: schedule must map weekday names to entry lists", ErrConfiguration)
	}

	var entries []ScheduleEntry
	for dayName, rawEntries := range byDay {
		day, ok := weekdays[strings.ToLower(dayName)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q in schedule", ErrConfiguration, dayName)
		}

		list, ok := rawEntries.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: schedule.%s must be a list", ErrConfiguration, dayName)
		}

		for _, rawEntry := range list {
			fields, ok := rawEntry.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: schedule.%s entries must be maps", ErrConfiguration, dayName)
			}

			timeRange, _ := fields["time"].(string)
			start, end, err := parseTimeRange(timeRange)
			if err != nil {
				return nil, fmt.Errorf("%w: schedule.%s: %v", ErrConfiguration, dayName, err)
			}

			course, _ := fields["course"].(string)
			titlePrefix, _ := fields["title_prefix"].(string)

			entries = append(entries, ScheduleEntry{
				Day:         day,
				Start:       start,
				End:         end,
				Course:      course,
				TitlePrefix: titlePrefix,
			})
		}
	}

	return entries, nil
}

// parseTimeRange parses "HH:MM-HH:MM" into minutes since midnight.
func parseTimeRange(timeRange string) (int, int, error) {
	parts := strings.SplitN(timeRange, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time %q is not in HH:MM-HH:MM form", timeRange)
	}

	start, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("time %q ends before it starts", timeRange)
	}

	return start, end, nil
}

func parseClock(clock string) (int, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("clock %q is not in HH:MM form", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("clock %q has an invalid hour", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock %q has an invalid minute", clock)
	}
	return hour*60 + minute, nil
}
