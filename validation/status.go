package validation

import (
	"strings"

	"civicreporter-be/models"
)

// ParseStatus accepts exactly the four report statuses. Order is not
// enforced: any status may follow any other.
func ParseStatus(raw string) (models.ReportStatus, error) {
	status := models.ReportStatus(raw)
	if !status.Valid() {
		names := make([]string, len(models.ReportStatuses))
		for i, s := range models.ReportStatuses {
			names[i] = string(s)
		}
		return "", newError("status", "Invalid status: status must be one of "+strings.Join(names, ", "))
	}
	return status, nil
}
