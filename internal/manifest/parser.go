// internal/manifest/parser.go
package manifest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	locatorPattern   = regexp.MustCompile(`^([^+:]+)\+([0-9]+)(\+[^+:]+)*$`)
	fileTokenPattern = regexp.MustCompile(`^([0-9]+):([0-9]+):(.+)$`)
)

// ParseError reports a manifest line that could not be parsed.
type ParseError struct {
	Line   int    `json:"line"` // 1-based
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest line %d: %s: %q", e.Line, e.Reason, e.Text)
}

type tokenKind int

const (
	tokenLocator tokenKind = iota + 1
	tokenFile
)

// token is a classified manifest token. Exactly one of locator or file is
// set, according to kind.
type token struct {
	kind    tokenKind
	locator Locator
	file    FileToken
}

// Parse converts manifest text into streams. Trailing blank lines are
// ignored; any other malformed line fails the whole parse.
func Parse(text string) (Manifest, error) {
	var m Manifest
	if text == "" {
		return m, nil
	}

	lines := strings.Split(text, "\n")
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	m.Streams = make([]Stream, 0, end)
	for i := 0; i < end; i++ {
		s, err := parseStream(lines[i], i+1)
		if err != nil {
			return Manifest{}, err
		}
		m.Streams = append(m.Streams, s)
	}
	return m, nil
}

func parseStream(line string, lineNo int) (Stream, error) {
	fail := func(reason string) (Stream, error) {
		return Stream{}, &ParseError{Line: lineNo, Text: line, Reason: reason}
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fail("empty stream")
	}

	name, err := parseStreamName(fields[0])
	if err != nil {
		return fail(err.Error())
	}
	if len(fields) == 1 {
		return fail("stream has no locators or file tokens")
	}

	s := Stream{Name: name}
	for _, raw := range fields[1:] {
		tok, err := classifyToken(raw)
		if err != nil {
			return fail(err.Error())
		}
		switch tok.kind {
		case tokenLocator:
			s.Locators = append(s.Locators, tok.locator)
		case tokenFile:
			s.FileTokens = append(s.FileTokens, tok.file)
		}
	}
	return s, nil
}

func parseStreamName(raw string) (string, error) {
	name, err := unescape(raw)
	if err != nil {
		return "", fmt.Errorf("stream name: %w", err)
	}
	if name == RootStream {
		return name, nil
	}
	if !strings.HasPrefix(name, "./") {
		return "", fmt.Errorf("stream name %q must be \".\" or start with \"./\"", raw)
	}
	for _, seg := range strings.Split(strings.TrimPrefix(name, "./"), "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("stream name %q has invalid segment %q", raw, seg)
		}
	}
	return name, nil
}

// classifyToken decides by shape alone whether raw is a block locator or a
// file token.
func classifyToken(raw string) (token, error) {
	if m := fileTokenPattern.FindStringSubmatch(raw); m != nil {
		pos, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return token{}, fmt.Errorf("file token %q: position: %w", raw, err)
		}
		length, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return token{}, fmt.Errorf("file token %q: length: %w", raw, err)
		}
		path, err := parseFilePath(m[3])
		if err != nil {
			return token{}, fmt.Errorf("file token %q: %w", raw, err)
		}
		return token{kind: tokenFile, file: FileToken{Position: pos, Length: length, Path: path}}, nil
	}

	if m := locatorPattern.FindStringSubmatch(raw); m != nil {
		size, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return token{}, fmt.Errorf("locator %q: size: %w", raw, err)
		}
		return token{kind: tokenLocator, locator: Locator{Raw: raw, Hash: m[1], Size: size}}, nil
	}

	return token{}, fmt.Errorf("unrecognized token %q", raw)
}

func parseFilePath(raw string) (string, error) {
	p, err := unescape(raw)
	if err != nil {
		return "", err
	}
	if p == "." {
		return p, nil
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid path segment %q", seg)
		}
	}
	return p, nil
}
