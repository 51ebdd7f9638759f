package commands

import "github.com/pixil98/go-realm/internal/perception"

const (
	defaultSayRadius   = 30.0
	defaultSightRadius = 40.0
)

type HandlerOpt func(*Handler)

// WithRecorder records every executed command line.
func WithRecorder(r perception.Recorder) HandlerOpt {
	return func(h *Handler) {
		h.recorder = r
	}
}

// WithLogQuerier enables the logs command.
func WithLogQuerier(q LogQuerier) HandlerOpt {
	return func(h *Handler) {
		h.logs = q
	}
}

// WithSayRadius sets how far speech carries.
func WithSayRadius(r float64) HandlerOpt {
	return func(h *Handler) {
		h.sayRadius = r
	}
}

// WithSightRadius sets how far visible actions carry.
func WithSightRadius(r float64) HandlerOpt {
	return func(h *Handler) {
		h.sightRadius = r
	}
}
