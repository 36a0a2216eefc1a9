package midi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

func ReadMidiFile(filepath string) (*smf.SMF, error) {
	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("error reading midi file: %w", err)
	}
	return Read(bytes.NewReader(dat))
}

func Read(r io.Reader) (s *smf.SMF, e error) {
	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if p, ok := recover().(string); ok {
			s, e = nil, errors.New(p)
		}
	}()

	res, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing midi file: %w", err)
	}
	return res, nil
}

func Write(w io.Writer, s *smf.SMF) error {
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("error writing midi file: %w", err)
	}
	return nil
}

// NoteEvent is a sounding note recovered from a file, in absolute ticks.
type NoteEvent struct {
	Track    int
	Channel  uint8
	Key      uint8
	Start    uint64
	Duration uint64
}

func Summarize(s *smf.SMF) []NoteEvent {
	var res []NoteEvent
	for i, track := range s.Tracks {
		pending := make(map[uint8]int)
		var absTicks uint64
		for _, event := range track {
			absTicks += uint64(event.Delta)
			var channel, key, velocity uint8
			switch {
			case event.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
				pending[key] = len(res)
				res = append(res, NoteEvent{Track: i, Channel: channel, Key: key, Start: absTicks})
			case event.Message.GetNoteOff(&channel, &key, &velocity),
				event.Message.GetNoteOn(&channel, &key, &velocity):
				if idx, ok := pending[key]; ok {
					res[idx].Duration = absTicks - res[idx].Start
					delete(pending, key)
				}
			}
		}
	}
	return res
}
