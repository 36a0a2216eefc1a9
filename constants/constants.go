package constants

import "os"

func GetOutDir() string {
	path := os.Getenv("OUT_PATH")
	if path != "" {
		return path
	}
	return "./out"
}

func GetExerciseDir() string {
	path := os.Getenv("EXERCISE_PATH")
	if path != "" {
		return path
	}
	return "./exercises"
}

const (
	MeiVersion   = "5.1"
	MeiNamespace = "http://www.music-encoding.org/ns/mei"
	SchemaHref   = "https://music-encoding.org/schema/5.1/mei-all.rng"
	RelaxNGNS    = "http://relaxng.org/ns/structure/1.0"
)

// the renderer we target reads this block to pick its import path
const (
	ApplicationName    = "Verovio"
	ApplicationVersion = "1.0.0"
	ApplicationLabel   = "2"
)

// spaces per nesting level
const IndentWidth = 2

const DateLayout = "2006-01-02"

const (
	DefaultKeySig     = "0"
	DefaultMeterCount = 4
	DefaultMeterUnit  = 4
	DefaultStaffLines = 5
)

const (
	TicksPerQuarter = 480
	DefaultTempo    = 96
	DefaultVelocity = 80
)
