package midi

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jsphweid/meigen/constants"
	"github.com/jsphweid/meigen/model"
)

const ticksPerWhole = 4 * constants.TicksPerQuarter

var pitchClasses = map[string]int{"c": 0, "d": 2, "e": 4, "f": 5, "g": 7, "a": 9, "b": 11}

var accidentals = map[string]int{
	"n": 0, "s": 1, "f": -1, "ss": 2, "x": 2, "ff": -2, "xs": 3, "ts": 3, "tf": -3,
}

var (
	sharpOrder = []string{"f", "c", "g", "d", "a", "e", "b"}
	flatOrder  = []string{"b", "e", "a", "d", "g", "c", "f"}
)

// KeyAlterations maps pitch names to the alteration a key signature like "3s" or "2f" implies.
func KeyAlterations(sig model.KeySig) (map[string]int, error) {
	res := make(map[string]int)
	s := strings.TrimSpace(string(sig))
	if s == "" || s == "0" {
		return res, nil
	}
	count, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || count < 0 || count > 7 {
		return nil, fmt.Errorf("unsupported key signature %q", sig)
	}
	switch s[len(s)-1] {
	case 's':
		for _, p := range sharpOrder[:count] {
			res[p] = 1
		}
	case 'f':
		for _, p := range flatOrder[:count] {
			res[p] = -1
		}
	default:
		return nil, fmt.Errorf("unsupported key signature %q", sig)
	}
	return res, nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

type ratio struct{ num, den uint32 }

// duration of a dur/dots pair in ticks, scaled by the enclosing tuplets.
func duration(dur, dots string, scale []ratio) (uint32, error) {
	var base uint32
	switch dur {
	case "long":
		base = 4 * ticksPerWhole
	case "breve":
		base = 2 * ticksPerWhole
	default:
		n, err := strconv.Atoi(dur)
		if err != nil || n <= 0 || n&(n-1) != 0 || ticksPerWhole%n != 0 {
			return 0, fmt.Errorf("unsupported duration %q", dur)
		}
		base = uint32(ticksPerWhole / n)
	}

	total := base
	if dots != "" {
		d, err := strconv.Atoi(dots)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("unsupported dots %q", dots)
		}
		add := base
		for i := 0; i < d; i++ {
			add /= 2
			total += add
		}
	}
	for _, r := range scale {
		total = total * r.num / r.den
	}
	return total, nil
}

// noteAccidentals collects the note's accid.ges and accid, from its own attributes or
// from <accid> children, and consumes the note through its end tag.
func noteAccidentals(dec *xml.Decoder, se xml.StartElement) (map[string]string, error) {
	res := make(map[string]string)
	for _, name := range []string{"accid.ges", "accid"} {
		if v := attr(se, name); v != "" {
			res[name] = v
		}
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("malformed notes: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local != "accid" {
				continue
			}
			for _, name := range []string{"accid.ges", "accid"} {
				if v := attr(t, name); v != "" && res[name] == "" {
					res[name] = v
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return res, nil
}

func pitch(se xml.StartElement, accids map[string]string, keyAlter map[string]int) (uint8, error) {
	pname := strings.ToLower(attr(se, "pname"))
	pc, ok := pitchClasses[pname]
	if !ok {
		return 0, fmt.Errorf("unsupported pname %q", pname)
	}
	oct, err := strconv.Atoi(attr(se, "oct"))
	if err != nil {
		return 0, fmt.Errorf("unsupported oct %q", attr(se, "oct"))
	}

	alter := keyAlter[pname]
	for _, name := range []string{"accid.ges", "accid"} {
		if v := accids[name]; v != "" {
			a, ok := accidentals[v]
			if !ok {
				return 0, fmt.Errorf("unsupported %s %q", name, v)
			}
			alter = a
			break
		}
	}

	key := 12*(oct+1) + pc + alter
	if key < 0 || key > 127 {
		return 0, fmt.Errorf("pitch %s%d is out of MIDI range", pname, oct)
	}
	return uint8(key), nil
}

// Note is a sounding note in absolute ticks.
type Note struct {
	Key      uint8
	Start    uint32
	Duration uint32
}

// voice collects the notes of one staff/layer across measures.
type voice struct {
	notes []Note
	// notes waiting for a tie continuation, by key
	tied map[uint8]int
}

func newVoice() *voice {
	return &voice{tied: make(map[uint8]int)}
}

func (v *voice) sound(key uint8, start, dur uint32, tie string) {
	if tie == "m" || tie == "t" {
		if idx, ok := v.tied[key]; ok {
			v.notes[idx].Duration = start + dur - v.notes[idx].Start
			if tie == "t" {
				delete(v.tied, key)
			}
			return
		}
	}
	v.notes = append(v.notes, Note{Key: key, Start: start, Duration: dur})
	if tie == "i" || tie == "m" {
		v.tied[key] = len(v.notes) - 1
	} else {
		delete(v.tied, key)
	}
}

// read interprets one layer fragment starting at tick at. Containers other than chord
// and tuplet are transparent.
func (v *voice) read(fragment string, at, measureLen uint32, keyAlter map[string]int) error {
	dec := xml.NewDecoder(strings.NewReader("<layer>" + fragment + "</layer>"))
	pos := at
	var scale []ratio
	var chordDur uint32
	inChord := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed notes: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "note":
				if attr(t, "grace") != "" {
					break
				}
				accids, err := noteAccidentals(dec, t)
				if err != nil {
					return err
				}
				dur := chordDur
				if d := attr(t, "dur"); d != "" || !inChord {
					if dur, err = duration(d, attr(t, "dots"), scale); err != nil {
						return err
					}
				}
				key, err := pitch(t, accids, keyAlter)
				if err != nil {
					return err
				}
				v.sound(key, pos, dur, attr(t, "tie"))
				if !inChord {
					pos += dur
				}
				continue
			case "rest", "space":
				dur, err := duration(attr(t, "dur"), attr(t, "dots"), scale)
				if err != nil {
					return err
				}
				pos += dur
			case "mRest", "mSpace":
				pos = at + measureLen
			case "chord":
				if chordDur, err = duration(attr(t, "dur"), attr(t, "dots"), scale); err != nil {
					return err
				}
				inChord = true
			case "tuplet":
				num, _ := strconv.Atoi(attr(t, "num"))
				numbase, _ := strconv.Atoi(attr(t, "numbase"))
				if num <= 0 || numbase <= 0 {
					return fmt.Errorf("tuplet needs num and numbase")
				}
				scale = append(scale, ratio{num: uint32(numbase), den: uint32(num)})
			default:
				continue
			}
			switch t.Name.Local {
			case "chord", "tuplet":
			default:
				if err := dec.Skip(); err != nil {
					return fmt.Errorf("malformed notes: %w", err)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "chord":
				inChord = false
				pos += chordDur
				chordDur = 0
			case "tuplet":
				if len(scale) > 0 {
					scale = scale[:len(scale)-1]
				}
			}
		}
	}
}
