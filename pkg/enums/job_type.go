package enums

import "fmt"

// JobType enumerates the lifecycle emails the automation engine can schedule.
// The set is closed: unknown strings are rejected at the API boundary and the
// template renderer alone carries a generic fallback.
type JobType string

const (
	JobTypeLeadNoBooking1    JobType = "lead_no_booking_1"
	JobTypeLeadNoBooking2    JobType = "lead_no_booking_2"
	JobTypePreClassReminder  JobType = "pre_class_reminder"
	JobTypePostClassFollowup JobType = "post_class_followup"
	JobTypeRebookNudge       JobType = "rebook_nudge"
)

var validJobTypes = []JobType{
	JobTypeLeadNoBooking1,
	JobTypeLeadNoBooking2,
	JobTypePreClassReminder,
	JobTypePostClassFollowup,
	JobTypeRebookNudge,
}

// LeadNurtureJobTypes are the job kinds retracted once a lead converts.
var LeadNurtureJobTypes = []JobType{JobTypeLeadNoBooking1, JobTypeLeadNoBooking2}

// IsValid checks whether the given type matches the canonical enum.
func (j JobType) IsValid() bool {
	for _, candidate := range validJobTypes {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJobType converts raw strings into JobType.
func ParseJobType(value string) (JobType, error) {
	for _, candidate := range validJobTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job type %q", value)
}
