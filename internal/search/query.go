package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CERP/fsindex/internal/store"
)

// Approximate calendar units used by "last N ..." phrases.
const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
)

var (
	timePattern = regexp.MustCompile(`(?:in\s+the\s+)?(?:past|last)\s+(\d+)\s+(hours?|days?|weeks?|months?)\b`)

	createdWords  = regexp.MustCompile(`\b(?:created|creation)\b`)
	modifiedWords = regexp.MustCompile(`\b(?:modified|modification|changed)\b`)
	accessedWords = regexp.MustCompile(`\b(?:accessed|access)\b`)
	timeWords     = regexp.MustCompile(`\b(?:created|creation|modified|modification|changed|accessed|access)\b`)

	fileWords  = regexp.MustCompile(`\bfiles?\b`)
	whitespace = regexp.MustCompile(`\s+`)
)

const sizeNum = `(\d+(?:\.\d+)?)\s*(kb|mb|gb|tb)\b`

// sizePatterns are tried in order; the first match wins.
var sizePatterns = []struct {
	re *regexp.Regexp
	op string
}{
	{regexp.MustCompile(`(?:smaller|less)\s+than\s+` + sizeNum), "<"},
	{regexp.MustCompile(`(?:larger|greater|bigger)\s+than\s+` + sizeNum), ">"},
	{regexp.MustCompile(`equal\s+to\s+` + sizeNum), "="},
	{regexp.MustCompile(sizeNum + `\s+or\s+(?:less|smaller)\b`), "<="},
	{regexp.MustCompile(sizeNum + `\s+or\s+(?:more|larger|bigger)\b`), ">="},
	{regexp.MustCompile(`<=\s*` + sizeNum), "<="},
	{regexp.MustCompile(`>=\s*` + sizeNum), ">="},
	{regexp.MustCompile(`<\s*` + sizeNum), "<"},
	{regexp.MustCompile(`>\s*` + sizeNum), ">"},
	{regexp.MustCompile(`=\s*` + sizeNum), "="},
}

var unitBytes = map[string]float64{
	"kb": 1 << 10,
	"mb": 1 << 20,
	"gb": 1 << 30,
	"tb": 1 << 40,
}

// ParseQuery extracts one time constraint ("last 3 days", optionally
// qualified by created/modified/accessed) and one size constraint
// ("larger than 10 mb", "<= 5kb", "2gb or more") from text. The returned
// Request carries the remaining lower-cased words as its query and the
// constraints as its filter; Mode and Limit are left for the caller.
// Times are relative to now. Months are 30 days and size units are
// powers of 1024.
func ParseQuery(text string, now time.Time) Request {
	q := strings.ToLower(text)
	var f store.Filter
	constrained := false

	if m := timePattern.FindStringSubmatchIndex(q); m != nil {
		n, _ := strconv.Atoi(q[m[2]:m[3]])
		f.Since = now.Add(-time.Duration(n) * timeUnit(q[m[4]:m[5]]))

		f.TimeField = store.TimeModified
		switch {
		case createdWords.MatchString(q):
			f.TimeField = store.TimeCreated
		case modifiedWords.MatchString(q):
			f.TimeField = store.TimeModified
		case accessedWords.MatchString(q):
			f.TimeField = store.TimeAccessed
		}

		q = q[:m[0]] + " " + q[m[1]:]
		q = timeWords.ReplaceAllString(q, " ")
		constrained = true
	}

	for _, p := range sizePatterns {
		m := p.re.FindStringSubmatchIndex(q)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(q[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		applySize(&f, p.op, int64(value*unitBytes[q[m[4]:m[5]]]))
		q = q[:m[0]] + " " + q[m[1]:]
		constrained = true
		break
	}

	if constrained {
		q = fileWords.ReplaceAllString(q, " ")
	}
	q = strings.TrimSpace(whitespace.ReplaceAllString(q, " "))

	return Request{Query: q, Filter: f}
}

func timeUnit(unit string) time.Duration {
	switch strings.TrimSuffix(unit, "s") {
	case "hour":
		return time.Hour
	case "day":
		return day
	case "week":
		return week
	default:
		return month
	}
}

// applySize maps an operator onto the inclusive size bounds of f. Upper
// bounds are always capped, so "smaller than 0 kb" matches nothing and
// "0 kb or less" matches only empty files.
func applySize(f *store.Filter, op string, n int64) {
	switch op {
	case "<":
		f.MaxSize, f.SizeCapped = n-1, true
	case "<=":
		f.MaxSize, f.SizeCapped = n, true
	case ">":
		f.MinSize = n + 1
	case ">=":
		f.MinSize = n
	case "=":
		f.MinSize, f.MaxSize, f.SizeCapped = n, n, true
	}
}
