package manifest

import (
	"fmt"
)

// RangeError reports a stream whose file tokens do not fit in its blocks.
type RangeError struct {
	Stream     string
	Token      FileToken
	StreamSize int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("stream %s: token %d:%d:%s exceeds stream size %d",
		e.Stream, e.Token.Position, e.Token.Length, e.Token.Path, e.StreamSize)
}

// Validate checks the structural integrity that Parse does not: every
// stream has at least one block and every file token lies within the
// stream's blocks.
func (m Manifest) Validate() error {
	for _, s := range m.Streams {
		if len(s.Locators) == 0 {
			return fmt.Errorf("stream %s: no block locators", s.Name)
		}
		if len(s.FileTokens) == 0 {
			return fmt.Errorf("stream %s: no file tokens", s.Name)
		}
		size := s.Size()
		for _, t := range s.FileTokens {
			if t.Length > size || t.Position > size-t.Length {
				return &RangeError{Stream: s.Name, Token: t, StreamSize: size}
			}
		}
	}
	return nil
}
