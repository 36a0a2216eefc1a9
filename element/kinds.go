package element

import (
	"strconv"

	"github.com/jsphweid/meigen/model"
)

func KeySig(sig model.KeySig) Element {
	return Element{
		Tag:         "keySig",
		Attrs:       []Attr{{Key: "sig", Value: string(sig)}},
		SelfClosing: true,
	}
}

func MeterSig(m model.MeterSig) Element {
	return Element{
		Tag:         "meterSig",
		Attrs:       []Attr{A("count", m.Count), A("unit", m.Unit)},
		SelfClosing: true,
	}
}

func Clef(c model.Clef) Element {
	return Element{
		Tag:         "clef",
		Attrs:       []Attr{{Key: "shape", Value: c.Shape}, A("line", c.Line)},
		SelfClosing: true,
	}
}

func StaffDef(def model.StaffDef) Element {
	return Element{
		Tag:      "staffDef",
		Attrs:    []Attr{A("n", def.N), A("lines", def.Lines)},
		Children: []string{Clef(def.Clef).String()},
	}
}

func StaffGrp(group *model.StaffGroup, defs []model.StaffDef) Element {
	var attrs []Attr
	if group != nil {
		if group.BarThru {
			attrs = append(attrs, Attr{Key: "bar.thru", Value: "true"})
		}
		if group.Symbol != "" {
			attrs = append(attrs, Attr{Key: "symbol", Value: group.Symbol})
		}
		if group.Label != "" {
			attrs = append(attrs, Attr{Key: "label", Value: group.Label})
		}
	}
	children := make([]string, 0, len(defs))
	for _, def := range defs {
		children = append(children, StaffDef(def).String())
	}
	return Element{Tag: "staffGrp", Attrs: attrs, Children: children}
}

// Layer wraps already trimmed note lines.
func Layer(n int, lines []string) Element {
	return Element{Tag: "layer", Attrs: []Attr{A("n", n)}, Children: lines}
}

func Staff(n int, layers []string) Element {
	return Element{Tag: "staff", Attrs: []Attr{A("n", n)}, Children: layers}
}

func Measure(n int, children []string) Element {
	return Element{
		Tag:      "measure",
		Attrs:    []Attr{{Key: "xml:id", Value: "m" + strconv.Itoa(n)}, A("n", n)},
		Children: children,
	}
}

// ScoreDefChange is the self-closing mid-score declaration.
func ScoreDefChange(n int, meter *model.MeterSig, key *model.KeySig) Element {
	attrs := []Attr{A("n", n)}
	if meter != nil {
		attrs = append(attrs, A("meter.count", meter.Count), A("meter.unit", meter.Unit))
	}
	if key != nil {
		attrs = append(attrs, Attr{Key: "keysig", Value: string(*key)})
	}
	return Element{Tag: "scoreDef", Attrs: attrs, SelfClosing: true}
}

// Stmt renders <tag><title>text</title></tag> on one line, the form used by the header.
func Stmt(tag string, inner Element) Element {
	return Element{Tag: tag, Text: inner.String(), Inline: true}
}

func TextElement(tag, text string) Element {
	return Element{Tag: tag, Text: escape(text), Inline: true}
}
