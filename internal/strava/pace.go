// ABOUTME: Pace calculations for activity summaries.
// ABOUTME: Converts distance and moving time into min/km.
package strava

import "fmt"

// PaceSecondsPerKm returns seconds per kilometre, or false when undefined.
func PaceSecondsPerKm(distanceMeters float64, movingSec int64) (float64, bool) {
	if distanceMeters <= 0 || movingSec <= 0 {
		return 0, false
	}
	return float64(movingSec) / (distanceMeters / 1000.0), true
}

// PaceFromMoving formats pace as M:SS per km, or "-" when undefined.
func PaceFromMoving(distanceMeters float64, movingSec int64) string {
	secPerKm, ok := PaceSecondsPerKm(distanceMeters, movingSec)
	if !ok {
		return "-"
	}
	total := int(secPerKm + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

