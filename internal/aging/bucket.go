package aging

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidBucketConfig reports bucket limits that are empty, negative or not strictly increasing.
	ErrInvalidBucketConfig = errors.New("aging: invalid bucket config")
	// ErrMissingGroupKey reports a grouping key that cannot be resolved.
	ErrMissingGroupKey = errors.New("aging: missing group key")
)

// Default bucket limits in days.
var defaultLimits = []int{30, 60, 90}

// Bucket is a labelled, inclusive upper bound on days overdue.
type Bucket struct {
	Label      string `json:"label"`
	UpperLimit int    `json:"upper_limit"`
}

// BucketConfig is an ordered list of buckets plus the implicit overflow bucket.
type BucketConfig struct {
	Buckets []Bucket `json:"buckets"`
}

// NewBucketConfig labels the provided limits as "0–30 Days", "31–60 Days", ...
func NewBucketConfig(limits ...int) BucketConfig {
	buckets := make([]Bucket, 0, len(limits))
	lower := 0
	for _, limit := range limits {
		buckets = append(buckets, Bucket{
			Label:      fmt.Sprintf("%d–%d Days", lower, limit),
			UpperLimit: limit,
		})
		lower = limit + 1
	}
	return BucketConfig{Buckets: buckets}
}

// DefaultBucketConfig returns the 30/60/90 day configuration.
func DefaultBucketConfig() BucketConfig {
	return NewBucketConfig(defaultLimits...)
}

// Validate checks that limits are non-negative and strictly increasing.
func (c BucketConfig) Validate() error {
	if len(c.Buckets) == 0 {
		return fmt.Errorf("%w: no buckets", ErrInvalidBucketConfig)
	}
	seen := make(map[string]struct{}, len(c.Buckets))
	for i, b := range c.Buckets {
		label := strings.TrimSpace(b.Label)
		if label == "" {
			return fmt.Errorf("%w: bucket %d has no label", ErrInvalidBucketConfig, i+1)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidBucketConfig, label)
		}
		seen[label] = struct{}{}
		if b.UpperLimit < 0 {
			return fmt.Errorf("%w: negative limit %d", ErrInvalidBucketConfig, b.UpperLimit)
		}
		if i > 0 && b.UpperLimit <= c.Buckets[i-1].UpperLimit {
			return fmt.Errorf("%w: limit %d does not exceed %d", ErrInvalidBucketConfig, b.UpperLimit, c.Buckets[i-1].UpperLimit)
		}
	}
	if _, dup := seen[c.overflowLabel()]; dup {
		return fmt.Errorf("%w: label collides with overflow bucket", ErrInvalidBucketConfig)
	}
	return nil
}

// OrDefault returns c when valid, otherwise the 30/60/90 default.
func (c BucketConfig) OrDefault() BucketConfig {
	if c.Validate() != nil {
		return DefaultBucketConfig()
	}
	return c
}

// Limits returns the configured upper limits in order.
func (c BucketConfig) Limits() []int {
	out := make([]int, len(c.Buckets))
	for i, b := range c.Buckets {
		out[i] = b.UpperLimit
	}
	return out
}

// OverflowLabel names the bucket above the last limit, e.g. ">90 Days".
func (c BucketConfig) OverflowLabel() string {
	return c.OrDefault().overflowLabel()
}

func (c BucketConfig) overflowLabel() string {
	if len(c.Buckets) == 0 {
		return ""
	}
	return fmt.Sprintf(">%d Days", c.Buckets[len(c.Buckets)-1].UpperLimit)
}

// Columns lists bucket labels in ascending order followed by the overflow label.
func (c BucketConfig) Columns() []string {
	cfg := c.OrDefault()
	cols := make([]string, 0, len(cfg.Buckets)+1)
	for _, b := range cfg.Buckets {
		cols = append(cols, b.Label)
	}
	return append(cols, cfg.overflowLabel())
}

// Classify returns the label of the first bucket whose limit is >= days.
// Negative counts are treated as zero and an invalid config falls back to the default.
func Classify(days int, cfg BucketConfig) string {
	cfg = cfg.OrDefault()
	if days < 0 {
		days = 0
	}
	for _, b := range cfg.Buckets {
		if days <= b.UpperLimit {
			return b.Label
		}
	}
	return cfg.overflowLabel()
}

// ParseDays coerces free-form text such as "45", "1,200" or "45 days" to a
// non-negative day count. Anything else is 0; huge values saturate at math.MaxInt.
func ParseDays(raw string) int {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, "days")
	s = strings.TrimSuffix(s, "day")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(f)
}

// DaysOverdue counts whole calendar days between due and asOf, never below zero.
func DaysOverdue(due *time.Time, asOf time.Time) int {
	if due == nil {
		return 0
	}
	d := truncateDay(*due)
	a := truncateDay(asOf)
	days := int((a.Unix() - d.Unix()) / 86400)
	if days < 0 {
		return 0
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
