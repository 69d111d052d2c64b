// Package coverage classifies per-line coverage markers and counts the uploads
// that contribute hits to a line.
package coverage

import "github.com/rs/zerolog"

type State string

const (
	Covered   State = "covered"
	Uncovered State = "uncovered"
	Partial   State = "partial"
	// Blank means the line is not tracked, not that it has zero hits
	Blank State = "blank"
)

// Raw markers sent by the reporting backend
const (
	CodeHit     = "H"
	CodeMiss    = "M"
	CodePartial = "P"
)

// Classify maps a raw coverage marker to a State. A nil marker is Blank.
// Unknown markers are also Blank, but they are logged since they usually
// mean the backend changed its contract.
func Classify(raw *string, log zerolog.Logger) State {
	if raw == nil {
		return Blank
	}
	switch *raw {
	case CodeHit:
		return Covered
	case CodeMiss:
		return Uncovered
	case CodePartial:
		return Partial
	}
	log.Warn().Str("raw_code", *raw).Msg("unrecognized coverage code, treating as blank")
	return Blank
}

// Code is the inverse of Classify. Blank has no marker.
func (s State) Code() *string {
	var code string
	switch s {
	case Covered:
		code = CodeHit
	case Uncovered:
		code = CodeMiss
	case Partial:
		code = CodePartial
	default:
		return nil
	}
	return &code
}

func (s State) IsTracked() bool {
	return s == Covered || s == Uncovered || s == Partial
}
