package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// Header returns the CSV column order for the given axes.
func Header(axes []domain.Axis) []string {
	cols := []string{"id", "timestamp", "placeName", "lat", "lng"}
	for _, a := range axes {
		cols = append(cols, a.Key)
	}
	return append(cols, "comment", "age_group", "gender")
}

// CSV writes a header row and one row per feature. Every value is quoted and
// embedded quotes are doubled; the header is written even for an empty snapshot.
func CSV(w io.Writer, snapshot []domain.Feature, axes []domain.Axis) error {
	bw := bufio.NewWriter(w)
	if err := writeRow(bw, Header(axes)); err != nil {
		return err
	}
	for _, f := range snapshot {
		row := []string{
			f.ID,
			f.Timestamp.UTC().Format(time.RFC3339),
			f.PlaceName,
			number(f.Location.Lat),
			number(f.Location.Lng),
		}
		for _, a := range axes {
			row = append(row, number(f.Rating(a.Key)))
		}
		row = append(row, f.Comment, f.AgeGroup, f.Gender)
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, v := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(v)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// number leaves non-finite values empty.
func number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Filename embeds the current date, e.g. mapsurvey-2026-10-15.csv.
func Filename(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, now.Format("2006-01-02"), ext)
}
