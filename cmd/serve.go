package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/jsphweid/amtdata/chunk"
	"github.com/jsphweid/amtdata/constants"
	"github.com/jsphweid/amtdata/dataset"
	"github.com/jsphweid/amtdata/logger"
	"github.com/jsphweid/amtdata/model"
	"github.com/jsphweid/amtdata/roll"
)

var (
	serveAddr       string
	serveFromChunks bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().BoolVar(&serveFromChunks, "chunks", false, "serve exported chunks from CHUNKS_PATH instead of building examples")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves examples over HTTP",
	Long:  `Serves example summaries and piano roll previews, built live from the dataset or read from exported chunks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		l := logger.Get()
		ctx := log.WithContext(cmd.Context(), l)

		var src dataset.Source
		if serveFromChunks {
			src, err = chunk.Open(constants.GetChunksDir())
		} else {
			src, err = dataset.Open(ctx, c, c.Seed)
		}
		if err != nil {
			return err
		}
		rollConfig := roll.Config{FPS: c.Target.FPS, Pitches: c.Target.PitchesNum, LowestPitch: c.Target.LowestPitch}

		l.Info("serving", "addr", serveAddr, "examples", src.Len())
		return http.ListenAndServe(serveAddr, NewRouter(src, rollConfig))
	},
}

type server struct {
	// a Source is not safe for concurrent Gets
	mu   sync.Mutex
	src  dataset.Source
	roll roll.Config
}

// NewRouter serves src. rollConfig renders previews of examples that carry
// no roll of their own.
func NewRouter(src dataset.Source, rollConfig roll.Config) http.Handler {
	s := &server{src: src, roll: rollConfig}
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/examples", s.handleLength).Methods(http.MethodGet)
	router.HandleFunc("/examples/{index:[0-9]+}", s.handleExample).Methods(http.MethodGet)
	router.HandleFunc("/examples/{index:[0-9]+}/roll.png", s.handleRoll).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(router)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, dataset.ErrIndexOutOfRange) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func (s *server) get(ctx context.Context, r *http.Request) (int, *dataset.Example, error) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		return 0, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, err := s.src.Get(ctx, index)
	return index, ex, err
}

func (s *server) handleLength(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := s.src.Len()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, model.LengthResponse{Length: n})
}

func (s *server) handleExample(w http.ResponseWriter, r *http.Request) {
	ctx := log.WithContext(r.Context(), logger.Get())
	index, ex, err := s.get(ctx, r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex.Summarize(index))
}

func (s *server) handleRoll(w http.ResponseWriter, r *http.Request) {
	ctx := log.WithContext(r.Context(), logger.Get())
	_, ex, err := s.get(ctx, r)
	if err != nil {
		writeError(w, err)
		return
	}
	scale := 4
	if v := r.URL.Query().Get("scale"); v != "" {
		if scale, err = strconv.Atoi(v); err != nil || scale < 1 || scale > 32 {
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "scale must be between 1 and 32"})
			return
		}
	}

	g := ex.Roll
	if g == nil {
		if g, err = s.roll.Rasterize(ex.Duration, ex.Tracks...); err != nil {
			writeError(w, err)
			return
		}
	}
	w.Header().Set("Content-Type", "image/png")
	if err := g.RenderPNG(w, scale); err != nil {
		logger.Get().Error("could not render roll", "err", err)
	}
}
