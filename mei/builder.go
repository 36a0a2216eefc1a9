// Package mei assembles MEI score documents measure by measure.
//
// A Builder is configured once with a model.ScoreConfig and then driven through
// OpenMeasure, AttachStaff and CloseMeasure for every measure, with optional
// InsertDeclaration calls between measures. Render returns the whole document.
// A Builder is not safe for concurrent use.
package mei

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jsphweid/meigen/constants"
	"github.com/jsphweid/meigen/element"
	"github.com/jsphweid/meigen/model"
	"github.com/jsphweid/meigen/util"
	"golang.org/x/exp/slices"
)

type State int

const (
	Idle State = iota
	MeasureOpen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case MeasureOpen:
		return "measure-open"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type measureInProgress struct {
	n        int
	override model.MeasureOverride
	// staff number -> rendered layers in attachment order
	staves map[int][]string
}

type entry struct {
	markup      string
	declaration bool
}

type Builder struct {
	cfg    model.ScoreConfig
	logger *slog.Logger
	app    application

	current  *measureInProgress
	entries  []entry
	declared map[int]bool
}

func New(cfg model.ScoreConfig, opts ...Option) (*Builder, error) {
	normalized, err := normalize(cfg)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		cfg:      normalized,
		logger:   slog.Default(),
		app:      defaultApplication(),
		declared: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger.Debug("Configured score builder", "title", b.cfg.Title, "staves", len(b.cfg.StaffDefs))
	return b, nil
}

// normalize validates cfg and returns a copy that shares no memory with it.
func normalize(cfg model.ScoreConfig) (model.ScoreConfig, error) {
	if strings.TrimSpace(cfg.Title) == "" {
		return cfg, configErr("title", "must not be empty")
	}
	if _, err := time.Parse(constants.DateLayout, cfg.Date); err != nil {
		return cfg, configErr("date", fmt.Sprintf("%q is not in YYYY-MM-DD form", cfg.Date))
	}
	if len(cfg.StaffDefs) == 0 {
		return cfg, configErr("staffDefs", "at least one staff is required")
	}

	defs := slices.Clone(cfg.StaffDefs)
	seen := make(map[int]bool, len(defs))
	for i := range defs {
		n := defs[i].N
		if n <= 0 {
			return cfg, configErr("staffDefs", fmt.Sprintf("staff number %d is not positive", n))
		}
		if seen[n] {
			return cfg, configErr("staffDefs", fmt.Sprintf("staff number %d is declared twice", n))
		}
		seen[n] = true
		if defs[i].Lines <= 0 {
			defs[i].Lines = constants.DefaultStaffLines
		}
	}
	cfg.StaffDefs = defs

	if cfg.KeySig == "" {
		cfg.KeySig = constants.DefaultKeySig
	}
	meter := model.MeterSig{Count: constants.DefaultMeterCount, Unit: constants.DefaultMeterUnit}
	if cfg.MeterSig != nil {
		meter = *cfg.MeterSig
	}
	cfg.MeterSig = &meter
	if cfg.StaffGroup != nil {
		group := *cfg.StaffGroup
		cfg.StaffGroup = &group
	}
	return cfg, nil
}

func (b *Builder) State() State {
	if b.current != nil {
		return MeasureOpen
	}
	return Idle
}

// Len is the number of closed measures and declarations.
func (b *Builder) Len() int {
	return len(b.entries)
}

func (b *Builder) Config() model.ScoreConfig {
	return b.cfg
}

func (b *Builder) protocolErr(op, reason string) error {
	err := &ProtocolError{Op: op, State: b.State(), Reason: reason}
	b.logger.Debug("Rejected builder call", "op", op, "state", err.State, "reason", reason)
	return err
}

func (b *Builder) OpenMeasure(n int, override *model.MeasureOverride) error {
	if b.current != nil {
		return b.protocolErr("OpenMeasure", fmt.Sprintf("measure %d is still open", b.current.n))
	}
	m := &measureInProgress{n: n, staves: make(map[int][]string)}
	if override != nil {
		if override.KeySig != nil {
			key := *override.KeySig
			m.override.KeySig = &key
		}
		if override.MeterSig != nil {
			meter := *override.MeterSig
			m.override.MeterSig = &meter
		}
	}
	b.current = m
	b.logger.Debug("Opened measure", "n", n)
	return nil
}

// AttachStaff adds one layer of notes to a staff of the open measure. Each line of
// notes is trimmed, so callers may pass indented markup.
func (b *Builder) AttachStaff(staff, layer int, notes string) error {
	if b.current == nil {
		return b.protocolErr("AttachStaff", "no measure is open")
	}
	if !b.isDeclared(staff) {
		b.logger.Warn("Attached staff is not declared and will not be emitted", "measure", b.current.n, "staff", staff)
	}
	rendered := element.Layer(layer, util.TrimLines(notes)).String()
	b.current.staves[staff] = append(b.current.staves[staff], rendered)
	return nil
}

func (b *Builder) isDeclared(staff int) bool {
	return slices.IndexFunc(b.cfg.StaffDefs, func(def model.StaffDef) bool {
		return def.N == staff
	}) >= 0
}

func (b *Builder) CloseMeasure() error {
	if b.current == nil {
		return b.protocolErr("CloseMeasure", "no measure is open")
	}
	m := b.current

	var children []string
	if m.override.KeySig != nil {
		children = append(children, element.KeySig(*m.override.KeySig).String())
	}
	if m.override.MeterSig != nil {
		children = append(children, element.MeterSig(*m.override.MeterSig).String())
	}
	for _, def := range b.cfg.StaffDefs {
		layers := m.staves[def.N]
		if len(layers) == 0 {
			continue
		}
		children = append(children, element.Staff(def.N, layers).String())
	}

	b.entries = append(b.entries, entry{markup: element.Measure(m.n, children).String()})
	b.current = nil
	b.logger.Debug("Closed measure", "n", m.n, "entries", len(b.entries))
	return nil
}

// InsertDeclaration appends a mid-score key/meter change after the measures closed so far.
func (b *Builder) InsertDeclaration(n int, meter *model.MeterSig, key *model.KeySig) error {
	if b.current != nil {
		return b.protocolErr("InsertDeclaration", fmt.Sprintf("measure %d is still open", b.current.n))
	}
	if b.declared[n] {
		return b.protocolErr("InsertDeclaration", fmt.Sprintf("declaration %d was already inserted", n))
	}
	b.declared[n] = true
	b.entries = append(b.entries, entry{
		markup:      element.ScoreDefChange(n, meter, key).String(),
		declaration: true,
	})
	b.logger.Debug("Inserted declaration", "n", n)
	return nil
}
