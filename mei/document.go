package mei

import (
	"fmt"
	"strings"

	"github.com/jsphweid/meigen/constants"
	"github.com/jsphweid/meigen/element"
	"golang.org/x/exp/slices"
)

var prolog = []string{
	`<?xml version="1.0" encoding="UTF-8"?>`,
	fmt.Sprintf(`<?xml-model href="%s" type="application/xml" schematypens="%s"?>`, constants.SchemaHref, constants.RelaxNGNS),
}

// Render returns the complete document. It does not change the builder, so repeated
// calls give the same text until the next measure or declaration is added.
func (b *Builder) Render() (string, error) {
	if b.current != nil {
		return "", b.protocolErr("Render", fmt.Sprintf("measure %d is still open", b.current.n))
	}
	if n := len(b.entries); n > 0 && b.entries[n-1].declaration {
		return "", b.protocolErr("Render", "a declaration follows the final measure")
	}

	root := element.Element{
		Tag: "mei",
		Attrs: []element.Attr{
			{Key: "xmlns", Value: constants.MeiNamespace},
			{Key: "meiversion", Value: constants.MeiVersion},
		},
		Children: []string{b.head().String(), b.music().String()},
	}
	lines := append(slices.Clone(prolog), root.Render(0))
	return strings.Join(lines, "\n"), nil
}

func (b *Builder) head() element.Element {
	fileDesc := []string{
		element.Stmt("titleStmt", element.TextElement("title", b.cfg.Title)).String(),
		element.Stmt("pubStmt", element.TextElement("date", b.cfg.Date)).String(),
	}
	if b.cfg.SeriesTitle != "" {
		fileDesc = append(fileDesc, element.Stmt("seriesStmt", element.TextElement("title", b.cfg.SeriesTitle)).String())
	}

	app := element.Element{
		Tag: "application",
		Attrs: []element.Attr{
			{Key: "version", Value: b.app.version},
			{Key: "label", Value: b.app.label},
		},
		Children: []string{element.TextElement("name", b.app.name).String()},
	}
	encodingDesc := element.Element{
		Tag:      "encodingDesc",
		Children: []string{element.Element{Tag: "appInfo", Children: []string{app.String()}}.String()},
	}

	return element.Element{
		Tag: "meiHead",
		Children: []string{
			element.Element{Tag: "fileDesc", Children: fileDesc}.String(),
			encodingDesc.String(),
		},
	}
}

func (b *Builder) scoreDef() element.Element {
	return element.Element{
		Tag: "scoreDef",
		Children: []string{
			element.KeySig(b.cfg.KeySig).String(),
			element.MeterSig(*b.cfg.MeterSig).String(),
			element.StaffGrp(b.cfg.StaffGroup, b.cfg.StaffDefs).String(),
		},
	}
}

func (b *Builder) music() element.Element {
	body := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		body = append(body, e.markup)
	}
	section := element.Element{Tag: "section", Children: body}
	score := element.Element{Tag: "score", Children: []string{b.scoreDef().String(), section.String()}}

	return wrap(score, "mdiv", "body", "music")
}

// wrap nests e inside each tag in turn, innermost first.
func wrap(e element.Element, tags ...string) element.Element {
	for _, tag := range tags {
		e = element.Element{Tag: tag, Children: []string{e.String()}}
	}
	return e
}
