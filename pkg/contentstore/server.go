package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcms/pkg/logger"
)

const maxFormMemory = 10 << 20

// ServerConfig holds the listen address of the store server
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Server exposes a Store over the content store HTTP API
type Server struct {
	router *mux.Router
	store  *Store
	config *ServerConfig
	server *http.Server
}

// NewServer creates a store server. config may be nil when the server is only
// used as an http.Handler.
func NewServer(store *Store, config *ServerConfig) (*Server, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if config != nil {
		if err := config.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid server configuration")
		}
	}

	s := &Server{
		router: mux.NewRouter(),
		store:  store,
		config: config,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	cms := s.router.PathPrefix("/cms").Subrouter()
	cms.HandleFunc("/getCommitHistory.json", s.handleHistory).Methods(http.MethodGet)
	cms.HandleFunc("/getFileAtCommitID.json", s.handleContentAt).Methods(http.MethodGet)
	cms.HandleFunc("/createSkill.json", s.handleCreate).Methods(http.MethodPost)
	cms.HandleFunc("/modifySkill.json", s.handleModify).Methods(http.MethodPost)

	s.router.Use(s.loggingMiddleware)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.statusCode,
			"duration": time.Since(start),
		}).Debug("store request")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func keyFromQuery(r *http.Request) Key {
	q := r.URL.Query()
	return Key{
		Model:    q.Get("model"),
		Group:    q.Get("group"),
		Language: q.Get("language"),
		Skill:    q.Get("skill"),
	}
}

type commitJSON struct {
	CommitID      string `json:"commitId"`
	CommitDate    string `json:"commitDate"`
	Author        string `json:"author"`
	CommitMessage string `json:"commit_message"`
}

// handleHistory handles GET /cms/getCommitHistory.json
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	key := keyFromQuery(r)
	if !key.valid() {
		s.writeRejection(w, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	records := s.store.History(key)
	commits := make([]commitJSON, 0, len(records))
	for _, c := range records {
		commits = append(commits, commitJSON{
			CommitID:      c.ID,
			CommitDate:    c.Date.Format(time.RFC3339),
			Author:        c.Author,
			CommitMessage: c.Message,
		})
	}

	s.writeJSONResponse(w, map[string]any{
		"accepted": true,
		"commits":  commits,
	})
}

// handleContentAt handles GET /cms/getFileAtCommitID.json
func (s *Server) handleContentAt(w http.ResponseWriter, r *http.Request) {
	key := keyFromQuery(r)
	commitID := r.URL.Query().Get("commitID")
	if !key.valid() || commitID == "" {
		s.writeRejection(w, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	commit, err := s.store.ContentAt(key, commitID)
	if err != nil {
		s.writeRejection(w, http.StatusNotFound, err)
		return
	}

	s.writeJSONResponse(w, map[string]any{
		"accepted":   true,
		"file":       commit.Content,
		"author":     commit.Author,
		"commitDate": commit.Date.Format(time.RFC3339),
	})
}

// handleCreate handles POST /cms/createSkill.json
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		s.writeRejection(w, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	image, err := readImage(r)
	if err != nil {
		s.writeRejection(w, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	req := CreateRequest{
		Key: Key{
			Model:    formOr(r, "model", "general"),
			Group:    r.FormValue("group"),
			Language: r.FormValue("language"),
			Skill:    r.FormValue("skill"),
		},
		Content:   r.FormValue("content"),
		ImageName: r.FormValue("image_name"),
		Image:     image,
		Private:   r.FormValue("private") == "1",
		Token:     r.FormValue("access_token"),
	}

	commit, err := s.store.Create(req)
	if err != nil {
		s.writeStoreError(r.Context(), w, err)
		return
	}

	s.writeJSONResponse(w, map[string]any{
		"accepted": true,
		"message":  fmt.Sprintf("Skill %s created", req.Key.Skill),
		"commitId": commit.ID,
	})
}

// handleModify handles POST /cms/modifySkill.json
func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		s.writeRejection(w, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	imageChanged, _ := strconv.ParseBool(r.FormValue("imageChanged"))
	var image []byte
	if imageChanged {
		var err error
		if image, err = readImage(r); err != nil {
			s.writeRejection(w, http.StatusBadRequest, ErrInvalidRequest)
			return
		}
	}

	req := ModifyRequest{
		Old: Key{
			Model:    formOr(r, "OldModel", "general"),
			Group:    r.FormValue("OldGroup"),
			Language: r.FormValue("OldLanguage"),
			Skill:    r.FormValue("OldSkill"),
		},
		New: Key{
			Model:    formOr(r, "NewModel", "general"),
			Group:    r.FormValue("NewGroup"),
			Language: r.FormValue("NewLanguage"),
			Skill:    r.FormValue("NewSkill"),
		},
		OldImageName: r.FormValue("old_image_name"),
		NewImageName: r.FormValue("new_image_name"),
		Content:      r.FormValue("content"),
		Changelog:    r.FormValue("changelog"),
		ImageChanged: imageChanged,
		Image:        image,
		Token:        r.FormValue("access_token"),
	}

	commit, err := s.store.Modify(req)
	if err != nil {
		s.writeStoreError(r.Context(), w, err)
		return
	}

	s.writeJSONResponse(w, map[string]any{
		"accepted": true,
		"message":  fmt.Sprintf("Skill %s updated", req.New.Skill),
		"commitId": commit.ID,
	})
}

func formOr(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

// readImage returns the uploaded image file, or nil when the field is absent or a plain string
func readImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
	}
}

func (s *Server) writeRejection(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(map[string]any{
		"accepted": false,
		"message":  err.Error(),
	}); encErr != nil {
		logger.G(context.TODO()).WithError(encErr).Error("failed to encode rejection")
	}
}

func (s *Server) writeStoreError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		s.writeRejection(w, http.StatusUnauthorized, err)
	case errors.Is(err, ErrSkillNotFound), errors.Is(err, ErrCommitNotFound):
		s.writeRejection(w, http.StatusNotFound, err)
	case errors.Is(err, ErrSkillExists):
		s.writeRejection(w, http.StatusConflict, err)
	case errors.Is(err, ErrInvalidRequest):
		s.writeRejection(w, http.StatusBadRequest, err)
	default:
		logger.G(ctx).WithError(err).Error("store write failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	if s.config == nil {
		return errors.New("server has no listen configuration")
	}
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "store server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
