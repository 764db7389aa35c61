package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ID represents a record primary key
type ID string

// NewID creates a new unique record key using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// TenantID identifies an isolated customer/company scope
type TenantID int64

// String returns the decimal form used inside identifier prefixes
func (t TenantID) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// Valid reports whether the tenant id is usable for allocation
func (t TenantID) Valid() bool {
	return t > 0
}

// ParseTenantID parses a positive decimal tenant id
func ParseTenantID(s string) (TenantID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTenant, s)
	}
	return TenantID(n), nil
}

// SeriesName names a tenant-scoped family of sequential identifiers (JOB, PART, ...)
type SeriesName string

var seriesNamePattern = regexp.MustCompile(`^[A-Z]+$`)

// ParseSeriesName normalizes and validates a series name.
// Only letters are accepted so that one series prefix can never be a prefix of
// another series' identifier followed by digits.
func ParseSeriesName(s string) (SeriesName, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !seriesNamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeries, s)
	}
	return SeriesName(name), nil
}

func (s SeriesName) String() string { return string(s) }

// DefaultWidth is the zero-padding width of numeric suffixes
const DefaultWidth = 4

// Identifier is a human-readable sequential identifier such as C7JOB0004
type Identifier string

func (i Identifier) String() string { return string(i) }

// SeriesPrefix derives the deterministic prefix of a tenant's series
func SeriesPrefix(tenant TenantID, series SeriesName) string {
	return "C" + tenant.String() + string(series)
}

// FormatIdentifier renders prefix + zero-padded seq. Sequences wider than
// width are written in full, never truncated.
func FormatIdentifier(prefix string, seq int64, width int) Identifier {
	if width <= 0 {
		width = DefaultWidth
	}
	return Identifier(fmt.Sprintf("%s%0*d", prefix, width, seq))
}

// ParseSuffix extracts the numeric suffix of an identifier issued under prefix.
// ok is false when the identifier does not have the expected shape.
func ParseSuffix(prefix string, id string) (seq int64, ok bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	digits := id[len(prefix):]
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Token is an opaque, randomly derived identifier such as JOB_1F3A9C02
type Token string

func (t Token) String() string { return string(t) }
