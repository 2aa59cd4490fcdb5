package logging

import (
	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Column adds the column being aggregated or classified.
func Column(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("column", name)
	}
}

// Function adds a data-bite function name.
func Function(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("function", name)
	}
}

// LegendType adds the legend binning strategy.
func LegendType(t string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("legend_type", t)
	}
}

// Classes adds the number of legend classes produced.
func Classes(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("classes", n)
	}
}

// Rows adds a row count.
func Rows(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("rows", n)
	}
}

// Cached adds a cache hit flag.
func Cached(cached bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("cached", cached)
	}
}

// Widget adds a widget identifier (file path or title).
func Widget(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("widget", id)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// With applies fields to an event in order.
func With(e *bolt.Event, fields ...Field) *bolt.Event {
	for _, f := range fields {
		e = f(e)
	}
	return e
}

// Dropped adds the number of values left out of a result.
func Dropped(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("dropped", n)
	}
}
