package model

type StaffData struct {
	Staff int    `yaml:"staff" json:"staff"`
	Layer int    `yaml:"layer" json:"layer"`
	Notes string `yaml:"notes" json:"notes"`
}

// Declaration is a mid-score key/meter change placed before the measure it belongs to.
type Declaration struct {
	MeterSig *MeterSig `yaml:"meterSig" json:"meterSig,omitempty"`
	KeySig   *KeySig   `yaml:"keySig" json:"keySig,omitempty"`
}

type MeasureData struct {
	N           int          `yaml:"n" json:"n"`
	KeySig      *KeySig      `yaml:"keySig" json:"keySig,omitempty"`
	MeterSig    *MeterSig    `yaml:"meterSig" json:"meterSig,omitempty"`
	Declaration *Declaration `yaml:"declaration" json:"declaration,omitempty"`
	Staves      []StaffData  `yaml:"staves" json:"staves"`
}

func (m MeasureData) Override() *MeasureOverride {
	o := &MeasureOverride{KeySig: m.KeySig, MeterSig: m.MeterSig}
	if o.IsEmpty() {
		return nil
	}
	return o
}

type Exercise struct {
	ScoreConfig `yaml:",inline"`

	// quarter notes per minute, used for MIDI rendition
	Tempo    int           `yaml:"tempo" json:"tempo,omitempty"`
	Measures []MeasureData `yaml:"measures" json:"measures"`
}
