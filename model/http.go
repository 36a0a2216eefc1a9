package model

type ErrorResponse struct {
	Error string `json:"detail"`
}

type RangeInfo struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type ExerciseList struct {
	Exercises []string `json:"exercises"`
}
