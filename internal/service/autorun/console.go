package autorun

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/autorun/internal/core"
)

const consoleTimeFormat = "2006-01-02 15:04:05"

var (
	statusStyles = map[core.TopicStatus]lipgloss.Style{
		core.TopicStatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		core.TopicStatusRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		core.TopicStatusExited:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		core.TopicStatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		core.TopicStatusStopped: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
	summaryStyle = lipgloss.NewStyle().Bold(true)
)

func styledStatus(s core.TopicStatus) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(consoleTimeFormat)
}

// FormatTopicLine renders one row of the list output.
func FormatTopicLine(v core.TopicView) string {
	pid := "-"
	if v.PID > 0 {
		pid = fmt.Sprintf("%d", v.PID)
	}
	logName := "-"
	if v.LogPath != "" {
		logName = filepath.Base(v.LogPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "topic=%s status=%s start=%s pid=%s hb=%s notes=%d log=%s",
		v.TopicID, styledStatus(v.Status), formatTime(v.StartTime), pid,
		formatTime(v.LastHeartbeat), v.NoteCount, logName)
	if v.RSSBytes > 0 {
		fmt.Fprintf(&b, " cpu=%.1f%% rss=%.1fMB", v.CPUPercent, float64(v.RSSBytes)/1024/1024)
	}
	return b.String()
}

// RenderList writes the fleet summary followed by one line per topic.
func RenderList(w io.Writer, s *Status) {
	if s == nil {
		fmt.Fprintln(w, "no status published yet")
		return
	}
	fmt.Fprintln(w, summaryStyle.Render(fmt.Sprintf("running=%d/%d pending=%d handled=%d candidates=%d",
		s.Running, s.Cap, s.Pending, s.Handled, s.LatestCandidates)))
	if len(s.Topics) == 0 {
		fmt.Fprintln(w, "no topics tracked")
		return
	}
	for _, v := range s.Topics {
		fmt.Fprintln(w, FormatTopicLine(v))
	}
}
