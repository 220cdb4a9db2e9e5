package version

import (
	"fmt"
	"runtime"
	"time"
)

// Заполняются через -ldflags "-X github.com/RuneMirror/RuneMirror/internal/version.BuildDate=..."
var (
	Version     = "dev"
	BuildDate   string // YYYY-MM-DD (UTC)
	BuildCommit string
)

// Номер сборки = дни от первого релиза протокола.
var buildEpoch = time.Date(
	2025, time.December, 4,
	0, 0, 0, 0,
	time.UTC,
)

// VersionInfo - метаданные сборки для /version и -version.
type VersionInfo struct {
	Version         string `json:"version"`
	ProtocolVersion int    `json:"protocol_version"`
	BuildID         int    `json:"build_id"`
	BuildDate       string `json:"build_date,omitempty"`
	Commit          string `json:"commit,omitempty"`
	GoVersion       string `json:"go_version"`
	Error           string `json:"error,omitempty"`
}

// buildID считает номер сборки для даты.
func buildID(date string) (int, error) {
	if date == "" {
		return 0, fmt.Errorf("build date is empty")
	}

	t, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid build date %q: %w", date, err)
	}
	if t.Before(buildEpoch) {
		return 0, fmt.Errorf("build date %s is before epoch", date)
	}

	// Часы, а не AddDate: обе даты в UTC, переходов на летнее время нет.
	return int(t.Sub(buildEpoch).Hours() / 24), nil
}

// Info собирает метаданные. protocolVersion передаёт вызывающий,
// чтобы пакет не зависел от протокола.
func Info(protocolVersion int) VersionInfo {
	info := VersionInfo{
		Version:         Version,
		ProtocolVersion: protocolVersion,
		BuildDate:       BuildDate,
		Commit:          BuildCommit,
		GoVersion:       runtime.Version(),
	}

	id, err := buildID(BuildDate)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.BuildID = id
	return info
}

func (i VersionInfo) String() string {
	if i.Error != "" {
		return fmt.Sprintf("runemirror %s protocol v%d (build unknown: %s)", i.Version, i.ProtocolVersion, i.Error)
	}
	commit := i.Commit
	if commit == "" {
		commit = "unknown"
	}
	return fmt.Sprintf("runemirror %s protocol v%d build %d (%s) commit[%s]", i.Version, i.ProtocolVersion, i.BuildID, i.BuildDate, commit)
}
