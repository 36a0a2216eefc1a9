package model

type KeySig string

type MeterSig struct {
	Count int `yaml:"count" json:"count"`
	Unit  int `yaml:"unit" json:"unit"`
}

type Clef struct {
	Shape string `yaml:"shape" json:"shape"`
	Line  int    `yaml:"line" json:"line"`
}

type StaffDef struct {
	N     int  `yaml:"n" json:"n"`
	Lines int  `yaml:"lines" json:"lines"`
	Clef  Clef `yaml:"clef" json:"clef"`
}

// StaffGroup holds the recognized <staffGrp> attributes. Zero values are not emitted.
type StaffGroup struct {
	Symbol  string `yaml:"symbol" json:"symbol,omitempty"`
	BarThru bool   `yaml:"barThru" json:"barThru,omitempty"`
	Label   string `yaml:"label" json:"label,omitempty"`
}

type ScoreConfig struct {
	Title       string      `yaml:"title" json:"title"`
	Date        string      `yaml:"date" json:"date"`
	SeriesTitle string      `yaml:"seriesTitle" json:"seriesTitle,omitempty"`
	StaffDefs   []StaffDef  `yaml:"staffDefs" json:"staffDefs"`
	StaffGroup  *StaffGroup `yaml:"staffGroup" json:"staffGroup,omitempty"`

	// empty means "0"
	KeySig KeySig `yaml:"keySig" json:"keySig,omitempty"`
	// nil means 4/4
	MeterSig *MeterSig `yaml:"meterSig" json:"meterSig,omitempty"`
}

// MeasureOverride changes key and/or meter at the head of a single measure.
type MeasureOverride struct {
	KeySig   *KeySig
	MeterSig *MeterSig
}

func (o *MeasureOverride) IsEmpty() bool {
	return o == nil || (o.KeySig == nil && o.MeterSig == nil)
}
