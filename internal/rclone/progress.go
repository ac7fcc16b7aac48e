package rclone

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Progress is one decoded transfer-progress update. Fields rclone did
// not report are left at their zero/absent markers: BytesTotal 0,
// Percent -1, Rate 0, HasETA false. Missing fields are never an error.
type Progress struct {
	BytesDone  int64
	BytesTotal int64
	Percent    float64
	Rate       float64 // bytes per second
	ETA        time.Duration
	HasETA     bool
	RawLine    string
}

// The byte-progress line looks like (exact spacing varies by version):
//
//	Transferred:   	   64.126 MiB / 1.086 GiB, 6%, 21.281 MiB/s, ETA 49s
//	Transferred:   	        0 B / 0 B, -, 0 B/s, ETA -
//
// and, under --stats-one-line, the same fields without the prefix:
//
//	64.126 MiB / 1.086 GiB, 6%, 21.281 MiB/s, ETA 49s
//
// rclone also prints a file-count line ("Transferred: 3 / 12, 25%")
// which carries no rate segment; requiring a "/s" field filters it out.
var progressRe = regexp.MustCompile(
	`^(?:Transferred:\s+)?([\d.,]+\s*\w*)\s*/\s*([\d.,]+\s*\w+)\s*,\s*([\d.]+%|-)\s*,\s*([\d.,]+\s*\w+/s|-)\s*(?:,\s*ETA\s+(\S+))?`)

// ParseProgressLine decodes one line of rclone --progress output.
// The second return value is false for lines that are not byte-progress
// lines; those are simply not progress updates, never errors.
func ParseProgressLine(line string) (Progress, bool) {
	m := progressRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Progress{}, false
	}

	p := Progress{Percent: -1, RawLine: line}

	done, ok := parseSize(m[1])
	if !ok {
		return Progress{}, false
	}
	p.BytesDone = done

	if total, ok := parseSize(m[2]); ok {
		p.BytesTotal = total
	}

	if m[3] != "-" {
		if pct, err := strconv.ParseFloat(strings.TrimSuffix(m[3], "%"), 64); err == nil {
			p.Percent = pct
		}
	}

	if m[4] != "-" {
		if rate, ok := parseSize(strings.TrimSuffix(m[4], "/s")); ok {
			p.Rate = float64(rate)
		}
	}

	if m[5] != "" && m[5] != "-" {
		if eta, err := parseETA(m[5]); err == nil {
			p.ETA = eta
			p.HasETA = true
		}
	}

	return p, true
}

var sizeMultipliers = map[string]float64{
	"":       1,
	"b":      1,
	"byte":   1,
	"bytes":  1,
	"kib":    1 << 10,
	"mib":    1 << 20,
	"gib":    1 << 30,
	"tib":    1 << 40,
	"pib":    1 << 50,
	"k":      1 << 10,
	"m":      1 << 20,
	"g":      1 << 30,
	"t":      1 << 40,
	"kbytes": 1 << 10,
	"mbytes": 1 << 20,
	"gbytes": 1 << 30,
	"tbytes": 1 << 40,
}

// parseSize decodes rclone's humanized byte values ("64.126 MiB",
// "1.086 GBytes", "0 B"). Thousands separators are tolerated.
func parseSize(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == ',') {
		i++
	}
	numPart := strings.ReplaceAll(s[:i], ",", "")
	unitPart := strings.ToLower(strings.TrimSpace(s[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, false
	}

	mult, ok := sizeMultipliers[unitPart]
	if !ok {
		return 0, false
	}
	return int64(value * mult), true
}

// parseETA decodes rclone's ETA strings: "49s", "1m23s", "2h3m10s",
// and the day-carrying "1d2h" form time.ParseDuration rejects.
func parseETA(s string) (time.Duration, error) {
	if i := strings.IndexByte(s, 'd'); i > 0 {
		days, err := strconv.Atoi(s[:i])
		if err == nil {
			rest := time.Duration(0)
			if i+1 < len(s) {
				rest, err = time.ParseDuration(s[i+1:])
				if err != nil {
					return 0, err
				}
			}
			return time.Duration(days)*24*time.Hour + rest, nil
		}
	}
	return time.ParseDuration(s)
}
