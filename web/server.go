package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cagefight/balance"
	"cagefight/config"
	"cagefight/database"
	"cagefight/fight"
	"cagefight/scheduler"
	"cagefight/utils"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	maxBalanceRuns   = 5000
	defaultRecent    = 20
	maxRecent        = 200
	maxNameLength    = 64
	maxRequestBodyKB = 64
)

type Server struct {
	router      *mux.Router
	repo        *database.Repository
	scheduler   *scheduler.Scheduler
	engine      *fight.DecisionEngine
	broadcaster *MatchBroadcaster
	viewers     *Viewers
	workers     int
	logger      zerolog.Logger
}

func NewServer(cfg *config.Config, repo *database.Repository, sched *scheduler.Scheduler, engine *fight.DecisionEngine, broadcaster *MatchBroadcaster, logger zerolog.Logger) *Server {
	s := &Server{
		router:      mux.NewRouter().StrictSlash(true),
		repo:        repo,
		scheduler:   sched,
		engine:      engine,
		broadcaster: broadcaster,
		viewers:     NewViewers(cfg.SessionSecret, strings.HasPrefix(cfg.ServerBaseURL, "https://")),
		workers:     cfg.BalanceWorkers,
		logger:      logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(RequestID(s.logger))

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	api.HandleFunc("/fighters", s.handleListFighters).Methods("GET")
	api.HandleFunc("/fighters", s.handleCreateFighter).Methods("POST")
	api.HandleFunc("/fighters/{id}", s.handleGetFighter).Methods("GET")

	api.HandleFunc("/card", s.handleCard).Methods("GET")
	api.HandleFunc("/catalog", s.handleCatalog).Methods("GET")
	api.HandleFunc("/balance", s.handleBalance).Methods("POST")
	api.HandleFunc("/following", s.handleFollowing).Methods("GET")

	// fixed paths before {id}
	api.HandleFunc("/matches/current", s.handleCurrentMatches).Methods("GET")
	api.HandleFunc("/matches/recent", s.handleRecentMatches).Methods("GET")
	api.HandleFunc("/matches/simulate", s.handleSimulate).Methods("POST")
	api.HandleFunc("/matches/live", s.handleStartLive).Methods("POST")
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods("GET")

	s.router.HandleFunc("/ws/match/{id}", s.broadcaster.HandleWebSocket)
}

// Handler is the router wrapped in CORS for the browser client
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
	)
	return cors(s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"live":   len(s.scheduler.CurrentMatches()),
	})
}

type fighterView struct {
	database.Fighter
	Overall    int    `json:"overall"`
	MaxHP      int    `json:"max_hp"`
	RecordLine string `json:"record_line"`
	Color      string `json:"color"`
	Ready      bool   `json:"ready"`
}

func newFighterView(f database.Fighter) fighterView {
	p := f.Profile()
	return fighterView{
		Fighter:    f,
		Overall:    p.Overall(),
		MaxHP:      p.MaxHP(),
		RecordLine: p.Record.String(),
		Color:      utils.FighterColor(f.ID),
		Ready:      f.Ready(),
	}
}

func (s *Server) handleListFighters(w http.ResponseWriter, r *http.Request) {
	fighters, err := s.repo.ListFightersByRecord(r.Context())
	if err != nil {
		s.serverError(w, r, err, "failed to list fighters")
		return
	}
	views := make([]fighterView, 0, len(fighters))
	for _, f := range fighters {
		views = append(views, newFighterView(f))
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetFighter(w http.ResponseWriter, r *http.Request) {
	f, err := s.repo.GetFighter(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "fighter not found")
		return
	}
	if err != nil {
		s.serverError(w, r, err, "failed to get fighter")
		return
	}
	respondJSON(w, http.StatusOK, newFighterView(*f))
}

type createFighterRequest struct {
	Name        string           `json:"name"`
	Nickname    string           `json:"nickname"`
	Strategy    string           `json:"strategy"`
	WeightClass string           `json:"weight_class"`
	Attributes  fight.Attributes `json:"attributes"`
}

func (s *Server) handleCreateFighter(w http.ResponseWriter, r *http.Request) {
	var req createFighterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > maxNameLength {
		respondError(w, http.StatusBadRequest, "name is required and must be at most 64 characters")
		return
	}
	strategy, err := fight.ParseStrategy(req.Strategy)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	class, err := fight.ParseWeightClass(req.WeightClass)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := fight.NewProfile("", req.Name, req.Attributes)
	p.Nickname = strings.TrimSpace(req.Nickname)
	p.Strategy = strategy
	p.Class = class
	f := database.FighterFromProfile(p)
	if err := s.repo.CreateFighter(r.Context(), &f); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			respondError(w, http.StatusConflict, "a fighter with that name already exists")
			return
		}
		s.serverError(w, r, err, "failed to create fighter")
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("fighter_id", f.ID).Str("name", f.Name).Msg("fighter created")
	respondJSON(w, http.StatusCreated, newFighterView(f))
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.scheduler.TodaysCard(r.Context(), time.Now())
	if err != nil {
		s.serverError(w, r, err, "failed to load today's card")
		return
	}
	if card == nil {
		card = []database.Match{}
	}
	respondJSON(w, http.StatusOK, card)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Catalog().Actions())
}

type liveMatchView struct {
	database.Match
	Snapshot fight.Snapshot `json:"snapshot"`
	Viewers  int            `json:"viewers"`
}

func (s *Server) handleCurrentMatches(w http.ResponseWriter, r *http.Request) {
	running := s.scheduler.CurrentMatches()
	views := make([]liveMatchView, 0, len(running))
	for _, m := range running {
		snap, ok := s.scheduler.LiveSnapshot(m.ID)
		if !ok {
			continue
		}
		views = append(views, liveMatchView{Match: m, Snapshot: snap, Viewers: s.broadcaster.ViewerCount(m.ID)})
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleRecentMatches(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecent
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecent)
	}
	matches, err := s.repo.RecentMatches(r.Context(), limit)
	if err != nil {
		s.serverError(w, r, err, "failed to load recent matches")
		return
	}
	if matches == nil {
		matches = []database.Match{}
	}
	respondJSON(w, http.StatusOK, matches)
}

type matchView struct {
	Match    *database.Match    `json:"match"`
	Result   *fight.MatchResult `json:"result,omitempty"`
	Summary  string             `json:"summary,omitempty"`
	Snapshot *fight.Snapshot    `json:"snapshot,omitempty"`
	Viewers  int                `json:"viewers"`
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	m, err := s.repo.GetMatch(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "match not found")
		return
	}
	if err != nil {
		s.serverError(w, r, err, "failed to get match")
		return
	}

	view := matchView{Match: m, Viewers: s.broadcaster.ViewerCount(id)}
	if snap, ok := s.scheduler.LiveSnapshot(id); ok {
		view.Snapshot = &snap
	}
	if m.Finished() {
		rounds, err := s.repo.GetMatchRounds(ctx, id)
		if err != nil {
			s.serverError(w, r, err, "failed to get match rounds")
			return
		}
		if res, ok := m.Result(rounds); ok {
			view.Result = &res
			view.Summary = summary(m, res)
		}
	}

	if err := s.viewers.Follow(w, r, id); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to save viewer session")
	}
	respondJSON(w, http.StatusOK, view)
}

func summary(m *database.Match, res fight.MatchResult) string {
	red := fight.Profile{ID: m.RedID, Name: m.RedName}
	blue := fight.Profile{ID: m.BlueID, Name: m.BlueName}
	return res.Summary(red, blue)
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	id := s.viewers.Following(r)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_id": id,
		"live":     id != "" && s.broadcaster.Live(id),
	})
}

type bookRequest struct {
	RedID     string          `json:"red_id"`
	BlueID    string          `json:"blue_id"`
	EventType fight.EventType `json:"event_type"`
	Seed      int64           `json:"seed"`
}

func (r *bookRequest) normalize() {
	if r.EventType == 0 {
		r.EventType = fight.RegularFight
	}
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.normalize()

	m, res, err := s.scheduler.SimulateNow(r.Context(), req.RedID, req.BlueID, req.EventType, req.Seed)
	if err != nil {
		s.bookingError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, matchView{
		Match:   m,
		Result:  &res,
		Summary: summary(m, res),
	})
}

func (s *Server) handleStartLive(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.normalize()

	m, err := s.scheduler.StartLiveNow(r.Context(), req.RedID, req.BlueID, req.EventType, req.Seed)
	if err != nil {
		s.bookingError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"match":     m,
		"websocket": "/ws/match/" + m.ID,
	})
}

type balanceRequest struct {
	RedID     string          `json:"red_id"`
	BlueID    string          `json:"blue_id"`
	Runs      int             `json:"runs"`
	Seed      int64           `json:"seed"`
	EventType fight.EventType `json:"event_type"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Runs < 1 || req.Runs > maxBalanceRuns {
		respondError(w, http.StatusBadRequest, "runs must be between 1 and 5000")
		return
	}
	if req.RedID == req.BlueID {
		respondError(w, http.StatusBadRequest, scheduler.ErrSameFighter.Error())
		return
	}

	ctx := r.Context()
	red, err := s.repo.GetFighter(ctx, req.RedID)
	if err != nil {
		s.bookingError(w, r, err)
		return
	}
	blue, err := s.repo.GetFighter(ctx, req.BlueID)
	if err != nil {
		s.bookingError(w, r, err)
		return
	}

	report, err := balance.Run(ctx, s.engine, red.Profile(), blue.Profile(), balance.Options{
		Runs:      req.Runs,
		Seed:      req.Seed,
		Workers:   s.workers,
		EventType: req.EventType,
	})
	if err != nil {
		s.serverError(w, r, err, "balance run failed")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) bookingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "fighter not found")
	case errors.Is(err, scheduler.ErrSameFighter):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.serverError(w, r, err, "failed to book match")
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(msg)
	respondError(w, http.StatusInternalServerError, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyKB<<10)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
