package version

import (
	"fmt"
	"time"
)

// ProtocolVersion is checked during authentication. A client speaking another
// version is rejected before it can request a game.
const ProtocolVersion uint16 = 3

// TimelineFormatVersion is the version written in contest timeline files.
const TimelineFormatVersion uint32 = 2

var (
	BuildDate   string // YYYY-MM-DD (UTC)
	BuildCommit string
	BuildBranch string
	BuildCI     string
)

var buildEpoch = time.Date(
	2025, time.December, 4,
	0, 0, 0, 0,
	time.UTC,
)

// VersionInfo describes the build metadata in structured form.
type VersionInfo struct {
	BuildID         int    `json:"buildId"`
	BuildDate       string `json:"buildDate"`
	Commit          string `json:"commit"`
	Branch          string `json:"branch"`
	CI              string `json:"ci"`
	ProtocolVersion uint16 `json:"protocolVersion"`
	TimelineVersion uint32 `json:"timelineVersion"`
	Calculated      bool   `json:"calculated"`
	Error           string `json:"error,omitempty"`
}

// CalculateBuildID returns the number of days between the build epoch and BuildDate.
func CalculateBuildID() (int, error) {
	if BuildDate == "" {
		return 0, fmt.Errorf("BuildDate is empty")
	}

	t, err := time.ParseInLocation("2006-01-02", BuildDate, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid BuildDate %q: %w", BuildDate, err)
	}

	if t.Before(buildEpoch) {
		return 0, fmt.Errorf("BuildDate %s is before epoch", BuildDate)
	}

	return int(t.Sub(buildEpoch).Hours() / 24), nil
}

// Info returns structured version information.
func Info() VersionInfo {
	info := VersionInfo{
		BuildDate:       BuildDate,
		Commit:          BuildCommit,
		Branch:          BuildBranch,
		CI:              BuildCI,
		ProtocolVersion: ProtocolVersion,
		TimelineVersion: TimelineFormatVersion,
	}

	id, err := CalculateBuildID()
	if err != nil {
		info.Error = err.Error()
		return info
	}

	info.BuildID = id
	info.Calculated = true
	return info
}

// String returns a human-readable build string.
func String() string {
	info := Info()

	if !info.Calculated {
		return fmt.Sprintf("Build unknown (%s) protocol[%d]", info.Error, info.ProtocolVersion)
	}

	return fmt.Sprintf(
		"Build %d (%s) commit[%s] branch[%s] ci[%s] protocol[%d]",
		info.BuildID,
		info.BuildDate,
		coalesce(info.Commit, "unknown"),
		coalesce(info.Branch, "unknown"),
		coalesce(info.CI, "local"),
		info.ProtocolVersion,
	)
}

func coalesce(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
