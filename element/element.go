// Package element renders tag/attribute/content triples into indented markup.
//
// Rendering is stateless: the caller passes the nesting depth of every element it
// renders, and child fragments are always rendered at depth 0 and shifted into place
// by their parent.
package element

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/jsphweid/meigen/constants"
	"github.com/jsphweid/meigen/util"
)

type Attr struct {
	Key   string
	Value string
}

// A builds an attribute, coercing value to text.
func A(key string, value any) Attr {
	return Attr{Key: key, Value: fmt.Sprint(value)}
}

type Element struct {
	Tag   string
	Attrs []Attr

	// Text is a multi-line block, each line is trimmed and placed one level deeper.
	Text string
	// Children are fragments rendered at level 0. Ignored when Text is set.
	Children []string

	SelfClosing bool
	// Inline keeps Text on the tag's own line.
	Inline bool
}

func Indent(level int) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat(" ", level*constants.IndentWidth)
}

// Shift moves every non-blank line of fragment by level.
func Shift(fragment string, level int) string {
	prefix := Indent(level)
	lines := strings.Split(fragment, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func escape(s string) string {
	var b strings.Builder
	// only fails when the writer does
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func (e Element) openTag() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(e.Tag)
	for _, a := range e.Attrs {
		fmt.Fprintf(&b, ` %s="%s"`, a.Key, escape(a.Value))
	}
	if e.SelfClosing {
		b.WriteString(" />")
	} else {
		b.WriteString(">")
	}
	return b.String()
}

func (e Element) inner() []string {
	var res []string
	if strings.TrimSpace(e.Text) != "" {
		for _, line := range util.TrimLines(e.Text) {
			res = append(res, Indent(1)+line)
		}
		return res
	}
	for _, child := range e.Children {
		if strings.TrimSpace(child) == "" {
			continue
		}
		res = append(res, Shift(child, 1))
	}
	return res
}

func (e Element) Render(level int) string {
	indent := Indent(level)
	open := e.openTag()
	if e.SelfClosing {
		return indent + open
	}
	closeTag := "</" + e.Tag + ">"
	if e.Inline {
		return indent + open + strings.Join(util.TrimLines(e.Text), " ") + closeTag
	}
	inner := e.inner()
	if len(inner) == 0 {
		return indent + open + closeTag
	}
	lines := make([]string, 0, len(inner)+2)
	lines = append(lines, indent+open)
	for _, l := range inner {
		lines = append(lines, Shift(l, level))
	}
	lines = append(lines, indent+closeTag)
	return strings.Join(lines, "\n")
}

func (e Element) String() string {
	return e.Render(0)
}
