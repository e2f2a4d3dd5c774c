// package formatter renders tracks and sync runs as CSV, plain text and styled terminal output
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/shared"
)

// LedgerHeader is the header row of a missing-track ledger.
var LedgerHeader = []string{"title", "artist", "album", "url"}

// ExportToCSV converts tracks to CSV format with columns: title, artist, album, url
func ExportToCSV(tracks []models.SourceTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(LedgerHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{track.Title, track.Artist, track.Album, track.URL}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ParseCSV reads tracks written by [ExportToCSV].
//
// Rows are taken as written; the title and album are not cleaned a second time.
func ParseCSV(r io.Reader) ([]models.SourceTrack, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(LedgerHeader)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty ledger", shared.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", shared.ErrInvalidInput, err)
	}
	if !strings.EqualFold(strings.Join(header, ","), strings.Join(LedgerHeader, ",")) {
		return nil, fmt.Errorf("%w: unexpected CSV header %q", shared.ErrInvalidInput, strings.Join(header, ","))
	}

	var tracks []models.SourceTrack
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV record: %v", shared.ErrInvalidInput, err)
		}
		tracks = append(tracks, models.SourceTrack{
			Title:  record[0],
			Artist: record[1],
			Album:  record[2],
			URL:    record[3],
		})
	}

	return tracks, nil
}

// ExportToText converts a list of tracks to a numbered plain text listing
func ExportToText(name string, tracks []models.SourceTrack) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", name))
	buf.WriteString(fmt.Sprintf("Missing: %d\n\n", len(tracks)))

	for i, track := range tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, track.Artist, track.Title, albumPart))
		if track.URL != "" {
			buf.WriteString(fmt.Sprintf("   %s\n", track.URL))
		}
	}

	return buf.Bytes()
}
