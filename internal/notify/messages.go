package notify

import (
	"fmt"
	"time"
)

// Reminder wording escalates with the ordinal; the fifth is the final
// warning. Ordinals beyond five reuse the final wording.
var reminderTitles = map[int]string{
	1: "Don't forget to submit your cleaning",
	2: "Your cleaning is still marked in progress",
	3: "Please submit your finished cleaning",
	4: "Urgent: your cleaning has not been submitted",
	5: "Final warning: cleaning about to be auto-submitted",
}

// ReminderMessage builds the title and body for a reminder at the given
// ordinal, including the time left before the system submits on the
// cleaner's behalf.
func ReminderMessage(ordinal int, remaining time.Duration) (title, body string) {
	if ordinal < 1 {
		ordinal = 1
	}
	if ordinal > 5 {
		ordinal = 5
	}
	title = reminderTitles[ordinal]

	left := formatRemaining(remaining)
	switch ordinal {
	case 1:
		body = fmt.Sprintf("Your scheduled work window has ended. If the cleaning is done, please mark it finished. Otherwise it will be submitted automatically in %s.", left)
	case 2:
		body = fmt.Sprintf("Just checking in: your cleaning still shows as in progress. It will be submitted automatically in %s unless you mark it finished.", left)
	case 3:
		body = fmt.Sprintf("Your cleaning has not been submitted yet. Please mark it finished now; automatic submission happens in %s.", left)
	case 4:
		body = fmt.Sprintf("This cleaning is well past its work window. Mark it finished now or it will be submitted for you in %s.", left)
	case 5:
		body = fmt.Sprintf("This is the last reminder. In %s the system will submit this cleaning for review on your behalf.", left)
	}
	return title, body
}

// AutoCompletedCleanerMessage tells the cleaner the system submitted on
// their behalf and the customer now has a review window.
func AutoCompletedCleanerMessage(approvalHours int) (title, body string) {
	title = "Your cleaning was submitted automatically"
	body = fmt.Sprintf("We didn't hear back, so the system marked this cleaning as finished and submitted it for review. The customer has %d hours to review it before it is approved.", approvalHours)
	return title, body
}

// AutoCompletedCustomerMessage tells the customer a completion is pending
// their review.
func AutoCompletedCustomerMessage(approvalHours int) (title, body string) {
	title = "Your cleaning is ready for review"
	body = fmt.Sprintf("Your cleaning has been marked as finished. Please review it within %d hours; after that it will be approved automatically.", approvalHours)
	return title, body
}

func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
