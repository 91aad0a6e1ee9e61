package txexec

import "strings"

// rejectionMarkers are the case-insensitive substrings wallets use to report
// that the user declined to sign.
var rejectionMarkers = []string{
	"rejected",
	"cancelled",
	"denied",
	"user refused",
}

// IsUserRejection reports whether err describes the user declining the
// transaction. Rejections are expected behaviour, not faults, and surface as
// StepCancelled with no error text.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, marker := range rejectionMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
