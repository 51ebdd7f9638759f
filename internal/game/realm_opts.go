package game

import "github.com/pixil98/go-realm/internal/scripting"

type RealmOpt func(*Realm)

func WithScriptHost(h scripting.Host) RealmOpt {
	return func(r *Realm) {
		r.host = h
	}
}

// WithPersister sets where dirty objects go after each event.
func WithPersister(p Persister) RealmOpt {
	return func(r *Realm) {
		r.persister = p
	}
}

func WithPublisher(p Publisher) RealmOpt {
	return func(r *Realm) {
		r.publisher = p
	}
}

// WithRecorder records every destroyed object.
func WithRecorder(rec Recorder) RealmOpt {
	return func(r *Realm) {
		r.recorder = rec
	}
}
