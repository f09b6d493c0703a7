// Package export renders transaction listings for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"ledger/internal/core"
)

// ContentType is the media type of the CSV payload.
const ContentType = "text/csv; charset=utf-8"

// Header lists the exported columns in order.
var Header = []string{"date", "type", "category", "amount", "description", "timestamp"}

// WriteCSV writes txs in the given order as UTF-8 CSV with a byte order mark
// so spreadsheet tools pick the right encoding for non-Latin text.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bw)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		row := []string{
			t.Date,
			t.Type.String(),
			t.Category,
			strconv.FormatInt(t.Amount, 10),
			t.Description,
			t.Timestamp,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("close csv encoder: %w", err)
	}
	return nil
}

// FileName builds the download name from the group's display name and the
// current date, e.g. "Club_20240115.csv".
func FileName(groupName string, now time.Time) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 32 {
			return -1
		}
		return r
	}, strings.TrimSpace(groupName))
	if name == "" {
		name = "ledger"
	}
	return name + "_" + now.Format("20060102") + ".csv"
}
