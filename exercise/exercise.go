// Package exercise loads dictation exercises: a score configuration plus a table of
// per-measure notation fragments that can be assembled into MEI for any measure range.
package exercise

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jsphweid/meigen/mei"
	"github.com/jsphweid/meigen/model"
	"gopkg.in/yaml.v3"
)

type Exercise struct {
	model.Exercise
	logger *slog.Logger
}

func New(data model.Exercise) *Exercise {
	return &Exercise{Exercise: data, logger: slog.Default()}
}

// Load reads an exercise file. Environment variables in the file are expanded first.
func Load(path string) (*Exercise, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exercise file: %w", err)
	}
	ex, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ex, nil
}

func Parse(data []byte) (*Exercise, error) {
	expanded := os.ExpandEnv(string(data))

	var raw model.Exercise
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exercise: %w", err)
	}
	return New(raw), nil
}

func (e *Exercise) WithLogger(logger *slog.Logger) *Exercise {
	if logger != nil {
		e.logger = logger
	}
	return e
}

func (e *Exercise) Config() model.ScoreConfig {
	return e.ScoreConfig
}

// Bounds returns the lowest and highest measure numbers in the table, or 0, 0 if it is empty.
func (e *Exercise) Bounds() (first, last int) {
	for i, m := range e.Measures {
		if i == 0 || m.N < first {
			first = m.N
		}
		if i == 0 || m.N > last {
			last = m.N
		}
	}
	return first, last
}

// InRange returns the measures numbered start..end inclusive, in file order.
func (e *Exercise) InRange(start, end int) []model.MeasureData {
	var res []model.MeasureData
	for _, m := range e.Measures {
		if m.N >= start && m.N <= end {
			res = append(res, m)
		}
	}
	return res
}

// Clamp narrows start..end to the measures present in the file.
func (e *Exercise) Clamp(start, end int) (int, int) {
	first, last := e.Bounds()
	if start < first {
		start = first
	}
	if end > last {
		end = last
	}
	return start, end
}

// Build renders measures start..end inclusive in file order. A declaration attached to
// the first rendered measure is folded into that measure's override, since nothing
// precedes it.
func (e *Exercise) Build(start, end int, opts ...mei.Option) (string, error) {
	if start > end {
		return "", fmt.Errorf("invalid measure range %d..%d", start, end)
	}
	b, err := mei.New(e.ScoreConfig, append([]mei.Option{mei.WithLogger(e.logger)}, opts...)...)
	if err != nil {
		return "", err
	}

	measures := e.InRange(start, end)
	if len(measures) == 0 {
		e.logger.Warn("No measure data in range", "start", start, "end", end, "title", e.Title)
	}
	for i, m := range measures {
		if err := e.addMeasure(b, m, i == 0); err != nil {
			return "", fmt.Errorf("measure %d: %w", m.N, err)
		}
	}
	return b.Render()
}

func (e *Exercise) addMeasure(b *mei.Builder, m model.MeasureData, first bool) error {
	override := m.Override()
	if d := m.Declaration; d != nil {
		if first {
			override = fold(override, d)
		} else if err := b.InsertDeclaration(m.N, d.MeterSig, d.KeySig); err != nil {
			return err
		}
	}

	if err := b.OpenMeasure(m.N, override); err != nil {
		return err
	}
	for _, s := range m.Staves {
		if err := b.AttachStaff(s.Staff, s.Layer, s.Notes); err != nil {
			return err
		}
	}
	return b.CloseMeasure()
}

// fold merges a declaration into an override; explicit override values win.
func fold(o *model.MeasureOverride, d *model.Declaration) *model.MeasureOverride {
	res := model.MeasureOverride{KeySig: d.KeySig, MeterSig: d.MeterSig}
	if o != nil {
		if o.KeySig != nil {
			res.KeySig = o.KeySig
		}
		if o.MeterSig != nil {
			res.MeterSig = o.MeterSig
		}
	}
	if res.IsEmpty() {
		return nil
	}
	return &res
}
