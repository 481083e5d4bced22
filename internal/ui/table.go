package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/playlist-etl/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	headerStyle = NewBold("#7D56F4").Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(NewStyle("#626262")).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// RunsTable renders ledger entries, newest first as given.
func RunsTable(runs []*models.Run) string {
	t := newTable("RUN", "STATUS", "BUCKET", "PLAYLISTS", "SKIPPED", "STARTED", "ELAPSED", "ERROR")
	for _, r := range runs {
		elapsed := "-"
		if r.FinishedAt != nil {
			elapsed = fmt.Sprintf("%.1fs", r.Elapsed().Seconds())
		}
		t.Row(
			shortID(r.ID),
			status(r.Status),
			r.Bucket,
			strings.Join(r.PlaylistIDs, ","),
			strconv.Itoa(r.Skipped),
			r.StartedAt.Local().Format(timeLayout),
			elapsed,
			truncate(r.Error, 48),
		)
	}
	return t.String()
}

// FilesTable renders the objects written by a run.
func FilesTable(bucket string, files []models.RunFile) string {
	t := newTable("ENTITY", "OBJECT", "ROWS")
	for _, f := range files {
		t.Row(string(f.Entity), bucket+"/"+f.Key, strconv.Itoa(f.Rows))
	}
	return t.String()
}

func status(s models.RunStatus) string {
	switch s {
	case models.RunSucceeded:
		return styles.OK(string(s))
	case models.RunFailed:
		return styles.Err(string(s))
	default:
		return styles.Warn(string(s))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
