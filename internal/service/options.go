package service

import (
	"time"

	"github.com/jonboulle/clockwork"

	"fincms/internal/config"
)

// Options carries the limits of the document core. Zero values fall back to
// the defaults below.
type Options struct {
	DefaultPageSize   int
	MaxPageSize       int
	MaxRecentViews    int
	RecentViewsLimit  int
	MaxContentLength  int64
	AllowedExtensions []string
	Clock             clockwork.Clock
}

const (
	defaultPageSize         = 20
	defaultMaxPageSize      = 100
	defaultMaxRecentViews   = 50
	defaultRecentViewsLimit = 10
)

// OptionsFromConfig maps the documents section of the app config.
func OptionsFromConfig(c config.DocumentsConfig) Options {
	return Options{
		DefaultPageSize:   c.DefaultPageSize,
		MaxPageSize:       c.MaxPageSize,
		MaxRecentViews:    c.MaxRecentViews,
		RecentViewsLimit:  c.RecentViewsLimit,
		MaxContentLength:  c.MaxContentLength,
		AllowedExtensions: c.AllowedExtensions,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = defaultPageSize
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = defaultMaxPageSize
	}
	if o.DefaultPageSize > o.MaxPageSize {
		o.DefaultPageSize = o.MaxPageSize
	}
	if o.MaxRecentViews <= 0 {
		o.MaxRecentViews = defaultMaxRecentViews
	}
	if o.RecentViewsLimit <= 0 {
		o.RecentViewsLimit = defaultRecentViewsLimit
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// now returns the current time truncated to the microsecond precision
// Postgres stores, so values read back compare equal.
func now(c clockwork.Clock) time.Time {
	return c.Now().UTC().Truncate(time.Microsecond)
}
