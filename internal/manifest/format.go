package manifest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// String renders the manifest in canonical text form, one stream per line
// with a trailing newline. An empty manifest renders as "".
func (m Manifest) String() string {
	return m.render(false)
}

// Stripped renders the manifest with every locator reduced to hash+size.
func (m Manifest) Stripped() string {
	return m.render(true)
}

// PortableDataHash is the content address of the manifest: the md5 of its
// stripped text followed by "+" and the text length.
func (m Manifest) PortableDataHash() string {
	text := m.Stripped()
	sum := md5.Sum([]byte(text))
	return fmt.Sprintf("%s+%d", hex.EncodeToString(sum[:]), len(text))
}

func (m Manifest) render(stripped bool) string {
	var b strings.Builder
	for _, s := range m.Streams {
		if s.Name == RootStream {
			b.WriteString(RootStream)
		} else {
			b.WriteString("./")
			b.WriteString(escapePath(s.Dir()))
		}
		for _, l := range s.Locators {
			b.WriteByte(' ')
			if stripped {
				b.WriteString(l.Stripped())
			} else {
				b.WriteString(l.Raw)
			}
		}
		for _, t := range s.FileTokens {
			fmt.Fprintf(&b, " %d:%d:%s", t.Position, t.Length, escapePath(t.Path))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// escapePath escapes each segment and keeps the separators.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = escape(seg)
	}
	return strings.Join(segs, "/")
}
