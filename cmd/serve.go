package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jsphweid/meigen/constants"
	"github.com/jsphweid/meigen/exercise"
	"github.com/jsphweid/meigen/file"
	"github.com/jsphweid/meigen/mei"
	"github.com/jsphweid/meigen/midi"
	"github.com/jsphweid/meigen/model"
	"github.com/jsphweid/meigen/sample"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

const (
	meiContentType  = "application/mei+xml; charset=utf-8"
	midiContentType = "audio/midi"
	maxBodyBytes    = 1 << 20
)

var (
	serveAddr string
	serveDir  string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveDir, "dir", constants.GetExerciseDir(), "exercise directory")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves MEI and MIDI renditions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := NewHandler(serveDir)
		slog.Info("Listening", "addr", serveAddr, "dir", serveDir)
		return http.ListenAndServe(serveAddr, handler)
	},
}

type server struct {
	dir string
}

// NewHandler routes the HTTP API for exercises under dir. The directory is scanned on
// every request so new files show up without a restart.
func NewHandler(dir string) http.Handler {
	s := &server{dir: dir}
	router := mux.NewRouter().StrictSlash(true)
	router.Use(withRequestID)
	router.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)
	router.HandleFunc("/exercises", s.handleList).Methods(http.MethodGet)
	router.HandleFunc("/exercises/{name}/excerpts", s.handleExcerpts).Methods(http.MethodGet)
	router.HandleFunc("/exercises/{name}/mei", s.handleMei).Methods(http.MethodGet)
	router.HandleFunc("/exercises/{name}/midi", s.handleMidi).Methods(http.MethodGet)
	return cors.Default().Handler(router)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		slog.Debug("Request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Could not encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "id", w.Header().Get("X-Request-Id"))
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

var errNotFound = errors.New("exercise not found")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, mei.ErrConfiguration), errors.Is(err, mei.ErrProtocol), errors.Is(err, errBadRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) load(r *http.Request) (*exercise.Exercise, error) {
	name := mux.Vars(r)["name"]
	catalog, err := file.LoadCatalog(s.dir)
	if err != nil {
		return nil, err
	}
	path, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotFound, name)
	}
	return exercise.Load(path)
}

var errBadRange = errors.New("invalid measure range")

// queryRange reads ?excerpt=name or ?start=&end=, defaulting to the whole piece.
func queryRange(r *http.Request, ex *exercise.Exercise) (int, int, error) {
	q := r.URL.Query()
	if name := q.Get("excerpt"); name != "" {
		rng, ok := sample.Find(sample.Ranges(ex.Bounds()), name)
		if !ok {
			return 0, 0, fmt.Errorf("%w: unknown excerpt %q", errBadRange, name)
		}
		return rng.Start, rng.End, nil
	}

	var start, end int
	for key, dst := range map[string]*int{"start": &start, "end": &end} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return 0, 0, fmt.Errorf("%w: %s=%q", errBadRange, key, raw)
		}
		*dst = v
	}
	start, end = resolveRange(ex, start, end)
	if start > end {
		return 0, 0, fmt.Errorf("%w: %d..%d", errBadRange, start, end)
	}
	return start, end, nil
}

func writeMei(w http.ResponseWriter, ex *exercise.Exercise, start, end int) error {
	doc, err := ex.Build(start, end)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", meiContentType)
	_, err = io.WriteString(w, doc)
	return err
}

func writeMidi(w http.ResponseWriter, ex *exercise.Exercise, start, end int) error {
	s, err := midi.FromExercise(ex, start, end)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := midi.Write(&buf, s); err != nil {
		return err
	}
	w.Header().Set("Content-Type", midiContentType)
	_, err = w.Write(buf.Bytes())
	return err
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	var input model.Exercise
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("could not decode request body: %w", err))
		return
	}
	ex := exercise.New(input)
	start, end, err := queryRange(r, ex)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// everything in a posted exercise is caller input
	write := writeMei
	if r.URL.Query().Get("format") == "midi" {
		write = writeMidi
	}
	if err := write(w, ex, start, end); err != nil {
		writeError(w, http.StatusBadRequest, err)
	}
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	catalog, err := file.LoadCatalog(s.dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ExerciseList{Exercises: catalog.Names()})
}

func (s *server) handleExcerpts(w http.ResponseWriter, r *http.Request) {
	ex, err := s.load(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sample.Ranges(ex.Bounds()))
}

func (s *server) serveRange(w http.ResponseWriter, r *http.Request, write func(http.ResponseWriter, *exercise.Exercise, int, int) error) {
	ex, err := s.load(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	start, end, err := queryRange(r, ex)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := write(w, ex, start, end); err != nil {
		writeError(w, statusFor(err), err)
	}
}

func (s *server) handleMei(w http.ResponseWriter, r *http.Request) {
	s.serveRange(w, r, writeMei)
}

func (s *server) handleMidi(w http.ResponseWriter, r *http.Request) {
	s.serveRange(w, r, writeMidi)
}
