package output

import (
	"os"

	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
)

// colorsEnabled caches the result of color support detection.
var colorsEnabled *bool

// IsColorSupported determines if color output should be enabled.
// NO_COLOR wins over FORCE_COLOR; otherwise stdout must be a terminal.
func IsColorSupported() bool {
	if colorsEnabled != nil {
		return *colorsEnabled
	}

	enabled := detectColorSupport()
	colorsEnabled = &enabled
	return enabled
}

func detectColorSupport() bool {
	// https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if _, exists := os.LookupEnv("FORCE_COLOR"); exists {
		return true
	}

	stat, err := os.Stdout.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice == 0 {
		return false
	}

	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}

// ResetColorDetection clears the cached color detection result.
func ResetColorDetection() {
	colorsEnabled = nil
}

// StateColor returns the color used to print a file state.
func StateColor(state syncrun.FileState) Color {
	switch state {
	case syncrun.StateCreated:
		return ColorGreen
	case syncrun.StateUpdated:
		return ColorCyan
	case syncrun.StateSkipped, syncrun.StateReported:
		return ColorDim
	case syncrun.StateFailed:
		return ColorRed
	default:
		return ""
	}
}

// StatusColor returns the color used to print a run status.
func StatusColor(status syncrun.Status) Color {
	switch status {
	case syncrun.StatusCompleted:
		return ColorGreen
	case syncrun.StatusFailed:
		return ColorRed
	default:
		return ColorYellow
	}
}
