package mei

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jsphweid/meigen/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trebleConfig() model.ScoreConfig {
	return model.ScoreConfig{
		Title: "Etude",
		Date:  "2025-05-01",
		StaffDefs: []model.StaffDef{
			{N: 1, Lines: 5, Clef: model.Clef{Shape: "G", Line: 2}},
		},
	}
}

func grandStaffConfig() model.ScoreConfig {
	return model.ScoreConfig{
		Title:       "Sample",
		Date:        "2025-04-29",
		SeriesTitle: "Dictation",
		StaffDefs: []model.StaffDef{
			{N: 1, Lines: 5, Clef: model.Clef{Shape: "G", Line: 2}},
			{N: 2, Lines: 5, Clef: model.Clef{Shape: "F", Line: 4}},
		},
		StaffGroup: &model.StaffGroup{Symbol: "brace", BarThru: true},
		KeySig:     "1s",
		MeterSig:   &model.MeterSig{Count: 3, Unit: 4},
	}
}

func newBuilder(t *testing.T, cfg model.ScoreConfig) *Builder {
	t.Helper()
	b, err := New(cfg)
	require.NoError(t, err)
	return b
}

func render(t *testing.T, b *Builder) string {
	t.Helper()
	out, err := b.Render()
	require.NoError(t, err)
	return out
}

// assertWellFormed walks the whole document with an XML decoder.
func assertWellFormed(t *testing.T, doc string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	assert.Equal(t, 0, depth)
}

const emptyTrebleDocument = `<?xml version="1.0" encoding="UTF-8"?>
<?xml-model href="https://music-encoding.org/schema/5.1/mei-all.rng" type="application/xml" schematypens="http://relaxng.org/ns/structure/1.0"?>
<mei xmlns="http://www.music-encoding.org/ns/mei" meiversion="5.1">
  <meiHead>
    <fileDesc>
      <titleStmt><title>Etude</title></titleStmt>
      <pubStmt><date>2025-05-01</date></pubStmt>
    </fileDesc>
    <encodingDesc>
      <appInfo>
        <application version="1.0.0" label="2">
          <name>Verovio</name>
        </application>
      </appInfo>
    </encodingDesc>
  </meiHead>
  <music>
    <body>
      <mdiv>
        <score>
          <scoreDef>
            <keySig sig="0" />
            <meterSig count="4" unit="4" />
            <staffGrp>
              <staffDef n="1" lines="5">
                <clef shape="G" line="2" />
              </staffDef>
            </staffGrp>
          </scoreDef>
          <section></section>
        </score>
      </mdiv>
    </body>
  </music>
</mei>`

func TestRenderWithoutMeasures(t *testing.T) {
	b := newBuilder(t, trebleConfig())
	out := render(t, b)
	assert.Equal(t, emptyTrebleDocument, out)
	assertWellFormed(t, out)
}

func TestRenderIsIdempotent(t *testing.T) {
	b := newBuilder(t, grandStaffConfig())
	require.NoError(t, b.OpenMeasure(1, nil))
	require.NoError(t, b.AttachStaff(1, 1, `<note pname="c" oct="4" dur="2"/>`))
	require.NoError(t, b.CloseMeasure())

	first := render(t, b)
	second := render(t, b)
	assert.Equal(t, first, second)
	assert.Equal(t, Idle, b.State())
	assert.Equal(t, 1, b.Len())
}

func TestSingleMeasureScenario(t *testing.T) {
	b := newBuilder(t, trebleConfig())
	require.NoError(t, b.OpenMeasure(1, nil))
	require.NoError(t, b.AttachStaff(1, 1, `
		<note pname="c" oct="4" dur="4"/>
		<note pname="d" oct="4" dur="4"/>
	`))
	require.NoError(t, b.CloseMeasure())
	out := render(t, b)
	assertWellFormed(t, out)

	expected := `          <section>
            <measure xml:id="m1" n="1">
              <staff n="1">
                <layer n="1">
                  <note pname="c" oct="4" dur="4"/>
                  <note pname="d" oct="4" dur="4"/>
                </layer>
              </staff>
            </measure>
          </section>`
	assert := assert.New(t)
	assert.Contains(out, expected)
	assert.Equal(1, strings.Count(out, "<measure "))
	assert.Equal(1, strings.Count(out, "<staff "))
	assert.Equal(1, strings.Count(out, "<layer "))
}

func TestStavesFollowDeclarationOrder(t *testing.T) {
	cfg := grandStaffConfig()
	cfg.StaffDefs[0], cfg.StaffDefs[1] = cfg.StaffDefs[1], cfg.StaffDefs[0]
	b := newBuilder(t, cfg)

	require.NoError(t, b.OpenMeasure(1, nil))
	require.NoError(t, b.AttachStaff(1, 1, `<note pname="c" oct="5" dur="1"/>`))
	require.NoError(t, b.AttachStaff(2, 1, `<note pname="c" oct="3" dur="1"/>`))
	require.NoError(t, b.CloseMeasure())
	out := render(t, b)

	two := strings.Index(out, `<staff n="2">`)
	one := strings.Index(out, `<staff n="1">`)
	require.True(t, one > 0 && two > 0)
	assert.Less(t, two, one)
}

func TestUnattachedStaffIsOmitted(t *testing.T) {
	b := newBuilder(t, grandStaffConfig())
	require.NoError(t, b.OpenMeasure(1, nil))
	require.NoError(t, b.AttachStaff(2, 1, `<rest dur="2"/>`))
	require.NoError(t, b.CloseMeasure())
	out := render(t, b)

	assert := assert.New(t)
	assert.NotContains(out, `<staff n="1">`)
	assert.Contains(out, `<staff n="2">`)
	assertWellFormed(t, out)
}

func TestLayersStackOnOneStaff(t *testing.T) {
	b := newBuilder(t, trebleConfig())
	require.NoError(t, b.OpenMeasure(3, nil))
	require.NoError(t, b.AttachStaff(1, 1, `<note pname="e" oct="5" dur="1"/>`))
	require.NoError(t, b.AttachStaff(1, 2, `<note pname="c" oct="4" dur="1"/>`))
	require.NoError(t, b.CloseMeasure())
	out := render(t, b)

	expected := `            <measure xml:id="m3" n="3">
              <staff n="1">
                <layer n="1">
                  <note pname="e" oct="5" dur="1"/>
                </layer>
                <layer n="2">
                  <note pname="c" oct="4" dur="1"/>
                </layer>
              </staff>
            </measure>`
	assert.Contains(t, out, expected)
}

func TestMeasureOverride(t *testing.T) {
	key := model.KeySig("2f")
	b := newBuilder(t, trebleConfig())
	require.NoError(t, b.OpenMeasure(5, &model.MeasureOverride{KeySig: &key, MeterSig: &model.MeterSig{Count: 6, Unit: 8}}))
	require.NoError(t, b.AttachStaff(1, 1, `<mRest/>`))
	require.NoError(t, b.CloseMeasure())
	out := render(t, b)

	expected := `            <measure xml:id="m5" n="5">
              <keySig sig="2f" />
              <meterSig count="6" unit="8" />
              <staff n="1">`
	assert.Contains(t, out, expected)
}

func TestDeclarationBetweenMeasures(t *testing.T) {
	b := newBuilder(t, trebleConfig())
	require.NoError(t, b.OpenMeasure(1, nil))
	require.NoError(t, b.AttachStaff(1, 1, `<note pname="c" oct="4" dur="1"/>`))
	require.NoError(t, b.CloseMeasure())
	require.NoError(t, b.InsertDeclaration(2, &model.MeterSig{Count: 2, Unit: 4}, nil))
	require.NoError(t, b.OpenMeasure(2, nil))
	require.NoError(t, b.AttachStaff(1, 1, `<note pname="d" oct="4" dur="2"/>`))
	require.NoError(t, b.CloseMeasure())
	out := render(t, b)

	decl := strings.Index(out, `<scoreDef n="2" meter.count="2" meter.unit="4" />`)
	m1 := strings.Index(out, `<measure xml:id="m1"`)
	m2 := strings.Index(out, `<measure xml:id="m2"`)
	require.True(t, decl > 0)
	assert.Less(t, m1, decl)
	assert.Less(t, decl, m2)
	assertWellFormed(t, out)
}

func TestProtocolViolations(t *testing.T) {
	b := newBuilder(t, trebleConfig())

	err := b.CloseMeasure()
	assert.ErrorIs(t, err, ErrProtocol)

	err = b.AttachStaff(1, 1, `<rest dur="4"/>`)
	assert.ErrorIs(t, err, ErrProtocol)

	require.NoError(t, b.OpenMeasure(1, nil))
	err = b.OpenMeasure(2, nil)
	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "OpenMeasure", perr.Op)
	assert.Equal(t, MeasureOpen, perr.State)
	assert.Contains(t, perr.Error(), "measure-open")

	assert.ErrorIs(t, b.InsertDeclaration(2, nil, nil), ErrProtocol)
	_, err = b.Render()
	assert.ErrorIs(t, err, ErrProtocol)

	// failed calls leave the open measure intact
	require.NoError(t, b.CloseMeasure())
	assert.Equal(t, 1, b.Len())
}

func TestDuplicateDeclarationRejected(t *testing.T) {
	b := newBuilder(t, trebleConfig())
	require.NoError(t, b.InsertDeclaration(1, nil, nil))
	assert.ErrorIs(t, b.InsertDeclaration(1, &model.MeterSig{Count: 3, Unit: 4}, nil), ErrProtocol)
}

func TestTrailingDeclarationRejectedOnRender(t *testing.T) {
	b := newBuilder(t, trebleConfig())
	require.NoError(t, b.OpenMeasure(1, nil))
	require.NoError(t, b.CloseMeasure())
	require.NoError(t, b.InsertDeclaration(2, &model.MeterSig{Count: 2, Unit: 4}, nil))

	_, err := b.Render()
	assert.ErrorIs(t, err, ErrProtocol)

	require.NoError(t, b.OpenMeasure(2, nil))
	require.NoError(t, b.CloseMeasure())
	_, err = b.Render()
	assert.NoError(t, err)
}

func TestConfigurationErrors(t *testing.T) {
	cases := map[string]func(*model.ScoreConfig){
		"empty title":     func(c *model.ScoreConfig) { c.Title = "  " },
		"bad date":        func(c *model.ScoreConfig) { c.Date = "2025/05/01" },
		"short date":      func(c *model.ScoreConfig) { c.Date = "2025-5-1" },
		"no staves":       func(c *model.ScoreConfig) { c.StaffDefs = nil },
		"duplicate staff": func(c *model.ScoreConfig) { c.StaffDefs = append(c.StaffDefs, c.StaffDefs[0]) },
		"zero staff":      func(c *model.ScoreConfig) { c.StaffDefs[0].N = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := trebleConfig()
			mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrConfiguration)
			var cerr *ConfigurationError
			assert.True(t, errors.As(err, &cerr))
		})
	}
}

func TestConfigIsCopied(t *testing.T) {
	cfg := grandStaffConfig()
	b := newBuilder(t, cfg)
	before := render(t, b)

	cfg.StaffDefs[0].Clef.Shape = "C"
	cfg.MeterSig.Count = 7
	cfg.StaffGroup.Symbol = "bracket"
	assert.Equal(t, before, render(t, b))
}

func TestGrandStaffHeader(t *testing.T) {
	b, err := New(grandStaffConfig(), WithApplication("meigen", "0.3.0"))
	require.NoError(t, err)
	out := render(t, b)

	assert := assert.New(t)
	assert.Contains(out, "      <seriesStmt><title>Dictation</title></seriesStmt>\n    </fileDesc>")
	assert.Contains(out, `<application version="0.3.0" label="2">`)
	assert.Contains(out, "<name>meigen</name>")
	assert.Contains(out, `<keySig sig="1s" />`)
	assert.Contains(out, `<meterSig count="3" unit="4" />`)
	assert.Contains(out, `<staffGrp bar.thru="true" symbol="brace">`)
	assertWellFormed(t, out)
}

func TestTitleIsEscaped(t *testing.T) {
	cfg := trebleConfig()
	cfg.Title = "Call & Response <I>"
	out := render(t, newBuilder(t, cfg))
	assert.Contains(t, out, "<title>Call &amp; Response &lt;I&gt;</title>")
	assertWellFormed(t, out)
}
