// Package midi turns exercise measures into Standard MIDI Files for playback and
// reads them back for inspection.
package midi

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/jsphweid/meigen/constants"
	"github.com/jsphweid/meigen/exercise"
	"github.com/jsphweid/meigen/model"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type voiceKey struct {
	staff int
	layer int
}

type meterChange struct {
	tick  uint32
	meter model.MeterSig
}

func measureLength(m model.MeterSig) uint32 {
	if m.Unit <= 0 || m.Count <= 0 {
		return ticksPerWhole
	}
	return uint32(m.Count * ticksPerWhole / m.Unit)
}

// FromExercise renders measures start..end into a format 1 file: a conductor track
// followed by one track per staff/layer pair, in staff declaration order.
func FromExercise(ex *exercise.Exercise, start, end int) (*smf.SMF, error) {
	meter := model.MeterSig{Count: constants.DefaultMeterCount, Unit: constants.DefaultMeterUnit}
	if ex.MeterSig != nil {
		meter = *ex.MeterSig
	}
	keyAlter, err := KeyAlterations(ex.KeySig)
	if err != nil {
		return nil, err
	}

	changes := []meterChange{{tick: 0, meter: meter}}
	voices := make(map[voiceKey]*voice)
	var pos uint32

	declared := make(map[int]bool, len(ex.StaffDefs))
	for _, def := range ex.StaffDefs {
		declared[def.N] = true
	}

	for _, m := range ex.InRange(start, end) {
		n := m.N

		var key *model.KeySig
		var next *model.MeterSig
		if d := m.Declaration; d != nil {
			key, next = d.KeySig, d.MeterSig
		}
		if m.KeySig != nil {
			key = m.KeySig
		}
		if m.MeterSig != nil {
			next = m.MeterSig
		}
		if key != nil {
			if keyAlter, err = KeyAlterations(*key); err != nil {
				return nil, fmt.Errorf("measure %d: %w", n, err)
			}
		}
		if next != nil && *next != meter {
			meter = *next
			changes = append(changes, meterChange{tick: pos, meter: meter})
		}

		length := measureLength(meter)
		for _, s := range m.Staves {
			// undeclared staves are not part of the score either
			if !declared[s.Staff] {
				slog.Warn("Skipping undeclared staff", "measure", n, "staff", s.Staff)
				continue
			}
			k := voiceKey{staff: s.Staff, layer: s.Layer}
			v, ok := voices[k]
			if !ok {
				v = newVoice()
				voices[k] = v
			}
			if err := v.read(s.Notes, pos, length, keyAlter); err != nil {
				return nil, fmt.Errorf("measure %d staff %d layer %d: %w", n, s.Staff, s.Layer, err)
			}
		}
		pos += length
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(constants.TicksPerQuarter)
	if err := s.Add(conductor(ex, changes, pos)); err != nil {
		return nil, err
	}
	for i, k := range orderVoices(ex.StaffDefs, voices) {
		if err := s.Add(voiceTrack(voices[k], channelFor(i), pos)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func conductor(ex *exercise.Exercise, changes []meterChange, end uint32) smf.Track {
	tempo := ex.Tempo
	if tempo <= 0 {
		tempo = constants.DefaultTempo
	}
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(ex.Title))
	tr.Add(0, smf.MetaTempo(float64(tempo)))

	var last uint32
	for _, c := range changes {
		tr.Add(c.tick-last, smf.MetaMeter(uint8(c.meter.Count), uint8(c.meter.Unit)))
		last = c.tick
	}
	tr.Close(end - last)
	return tr
}

// orderVoices sorts voices by the staff declaration order, then by layer.
func orderVoices(defs []model.StaffDef, voices map[voiceKey]*voice) []voiceKey {
	rank := make(map[int]int, len(defs))
	for i, def := range defs {
		rank[def.N] = i
	}
	keys := make([]voiceKey, 0, len(voices))
	for k := range voices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := rank[keys[i].staff]
		rj, jok := rank[keys[j].staff]
		if iok != jok {
			return iok
		}
		if ri != rj {
			return ri < rj
		}
		if keys[i].staff != keys[j].staff {
			return keys[i].staff < keys[j].staff
		}
		return keys[i].layer < keys[j].layer
	})
	return keys
}

// channelFor skips channel 10, reserved for percussion.
func channelFor(i int) uint8 {
	ch := uint8(i % 15)
	if ch >= 9 {
		ch++
	}
	return ch
}

type timedMessage struct {
	tick uint32
	off  bool
	msg  midi.Message
}

func voiceTrack(v *voice, channel uint8, end uint32) smf.Track {
	msgs := make([]timedMessage, 0, 2*len(v.notes))
	for _, n := range v.notes {
		msgs = append(msgs,
			timedMessage{tick: n.Start, msg: midi.NoteOn(channel, n.Key, constants.DefaultVelocity)},
			timedMessage{tick: n.Start + n.Duration, off: true, msg: midi.NoteOff(channel, n.Key)},
		)
	}
	// note offs first so repeated pitches re-strike
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].off && !msgs[j].off
	})

	var tr smf.Track
	var last uint32
	for _, m := range msgs {
		tr.Add(m.tick-last, m.msg)
		last = m.tick
	}
	if end < last {
		end = last
	}
	tr.Close(end - last)
	return tr
}
