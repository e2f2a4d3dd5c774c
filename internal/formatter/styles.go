package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/pxsync/internal/models"
)

// Styles is the default palette for terminal output.
var Styles = NewPalette("#E5A00D", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Status renders a run status in the color that matches its severity.
func (p *Palette) Status(status string) string {
	switch status {
	case models.RunStatusSynced:
		return p.OK(status)
	case models.RunStatusPartial:
		return p.Warn(status)
	case models.RunStatusSkipped:
		return p.Help(status)
	default:
		return p.Err(status)
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// RunTable renders sync history rows as a bordered table.
func RunTable(runs []models.SyncRun) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(NewStyle("#626262")).
		Headers("#", "BATCH", "PLAYLIST", "TRACKS", "MATCHED", "MISSING", "ACCOUNTS", "STATUS", "WHEN")

	for _, run := range runs {
		batch := run.BatchID
		if len(batch) > 8 {
			batch = batch[:8]
		}
		t.Row(
			strconv.Itoa(run.Sequence),
			batch,
			run.Playlist,
			strconv.Itoa(run.TotalTracks),
			strconv.Itoa(run.Matched),
			strconv.Itoa(run.Unmatched),
			strconv.Itoa(run.Accounts),
			run.Status,
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}

	return t.Render()
}

// RunSummary renders one line per reconciled playlist followed by batch totals.
func RunSummary(runs []models.SyncRun) string {
	var b strings.Builder
	b.WriteString(Styles.Title("Sync complete"))
	b.WriteString("\n\n")

	matched, missing := 0, 0
	for _, run := range runs {
		matched += run.Matched
		missing += run.Unmatched

		line := fmt.Sprintf("%s  %d/%d matched", run.Playlist, run.Matched, run.TotalTracks)
		if run.Unmatched > 0 {
			line += " " + Styles.Warn(fmt.Sprintf("(%d missing)", run.Unmatched))
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", Styles.Status(run.Status), line))
	}

	b.WriteString("\n")
	b.WriteString(Styles.Help(fmt.Sprintf("%d playlists, %d matched, %d missing", len(runs), matched, missing)))
	b.WriteString("\n")
	return b.String()
}
