package temporal

import (
	"fmt"
	"time"

	"github.com/reugn/go-quartz/quartz"
)

// ValidateSchedule checks that expr is a well-formed Quartz expression.
func ValidateSchedule(expr string) error {
	if _, err := quartz.NewCronTrigger(expr); err != nil {
		return fmt.Errorf("temporal: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// NextFire returns the first instant strictly after after at which expr
// fires, evaluated in loc. One-off expressions whose year has passed return
// an error.
func NextFire(expr string, after time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	trigger, err := quartz.NewCronTriggerWithLoc(expr, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("temporal: invalid schedule %q: %w", expr, err)
	}
	next, err := trigger.NextFireTime(after.UnixNano())
	if err != nil {
		return time.Time{}, fmt.Errorf("temporal: no next fire for %q: %w", expr, err)
	}
	return time.Unix(0, next).In(loc), nil
}
