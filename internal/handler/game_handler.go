package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/freeeve/partycards/internal/auth"
	"github.com/freeeve/partycards/internal/logger"
	"github.com/freeeve/partycards/internal/model"
	"github.com/freeeve/partycards/internal/service"
	"github.com/freeeve/partycards/pkg/cards"
)

// GameHandler exposes the game engine over HTTP.
type GameHandler struct {
	games *service.GameService
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(games *service.GameService) *GameHandler {
	return &GameHandler{games: games}
}

var kindStatus = map[service.ErrorKind]int{
	service.KindIdentity:       http.StatusUnauthorized,
	service.KindAuthorization:  http.StatusForbidden,
	service.KindPrecondition:   http.StatusBadRequest,
	service.KindNotFound:       http.StatusNotFound,
	service.KindConflict:       http.StatusConflict,
	service.KindInfrastructure: http.StatusInternalServerError,
}

// writeServiceError maps an engine error onto a status code. Precondition
// messages are written for players to read; infrastructure detail is only
// logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.Classify(err)
	status := kindStatus[kind]
	if kind == service.KindInfrastructure {
		l := logger.ForGame(r.Context(), r.PathValue("id"))
		l.Error().Err(err).Str("path", r.URL.Path).Msg("Command failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeGame(w http.ResponseWriter, status int, g *model.Game) {
	writeJSON(w, status, g.ToClient())
}

type gameCommand func(ctx context.Context, id model.Identity, gameID string) (*model.Game, error)

// command runs a body-less command against the game in the path.
func (h *GameHandler) command(w http.ResponseWriter, r *http.Request, fn gameCommand) {
	id := auth.IdentityFromContext(r.Context())
	g, err := fn(r.Context(), id, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeGame(w, http.StatusOK, g)
}

// ListPublicGames handles GET /api/v1/games/public
func (h *GameHandler) ListPublicGames(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	games, err := h.games.ListPublicGames(r.Context(), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(games, func(g *model.Game, _ int) model.ClientGame {
		return g.ToClient()
	}))
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.games.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeGame(w, http.StatusOK, g)
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nickname string `json:"nickname"`
		Family   bool   `json:"isFamily"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "nickname is required")
		return
	}
	g, err := h.games.CreateGame(r.Context(), auth.IdentityFromContext(r.Context()), req.Nickname, req.Family)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeGame(w, http.StatusCreated, g)
}

// JoinGame handles POST /api/v1/games/{id}/join
func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nickname   string `json:"nickname"`
		Spectating bool   `json:"isSpectating"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "nickname is required")
		return
	}
	h.command(w, r, func(ctx context.Context, id model.Identity, gameID string) (*model.Game, error) {
		return h.games.JoinGame(ctx, id, gameID, req.Nickname, req.Spectating)
	})
}

// KickPlayer handles POST /api/v1/games/{id}/kick
func (h *GameHandler) KickPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetGUID string `json:"targetGuid"`
	}
	if err := decodeJSON(r, &req); err != nil || req.TargetGUID == "" {
		writeError(w, http.StatusBadRequest, "targetGuid is required")
		return
	}
	h.command(w, r, func(ctx context.Context, id model.Identity, gameID string) (*model.Game, error) {
		return h.games.KickPlayer(ctx, id, gameID, req.TargetGUID)
	})
}

// AddBot handles POST /api/v1/games/{id}/bots
func (h *GameHandler) AddBot(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.games.AddBot)
}

// SetPlayerApproval handles POST /api/v1/games/{id}/approval
func (h *GameHandler) SetPlayerApproval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetGUID string `json:"targetGuid"`
		Approved   bool   `json:"approved"`
	}
	if err := decodeJSON(r, &req); err != nil || req.TargetGUID == "" {
		writeError(w, http.StatusBadRequest, "targetGuid is required")
		return
	}
	h.command(w, r, func(ctx context.Context, id model.Identity, gameID string) (*model.Game, error) {
		return h.games.SetPlayerApproval(ctx, id, gameID, req.TargetGUID, req.Approved)
	})
}

// UpdateSettings handles PATCH /api/v1/games/{id}/settings
func (h *GameHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Settings model.Settings `json:"settings"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.command(w, r, func(ctx context.Context, id model.Identity, gameID string) (*model.Game, error) {
		return h.games.UpdateSettings(ctx, id, gameID, req.Settings)
	})
}

// StartGame handles POST /api/v1/games/{id}/start. The body may carry
// settings to apply before dealing.
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Settings *model.Settings `json:"settings"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	h.command(w, r, func(ctx context.Context, id model.Identity, gameID string) (*model.Game, error) {
		return h.games.StartGame(ctx, id, gameID, req.Settings)
	})
}

// RestartGame handles POST /api/v1/games/{id}/restart
func (h *GameHandler) RestartGame(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.games.RestartGame)
}

type playRequest struct {
	Cards []cards.CardID `json:"cardIds"`
}

// PlayCards handles POST /api/v1/games/{id}/play
func (h *GameHandler) PlayCards(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.command(w, r, func(ctx context.Context, id model.Identity, gameID string) (*model.Game, error) {
		return h.games.PlayCard(ctx, id, gameID, req.Cards)
	})
}

// Forfeit handles POST /api/v1/games/{id}/forfeit
func (h *GameHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.command(w, r, func(ctx context.Context, id model.Identity, gameID string) (*model.Game, error) {
		return h.games.Forfeit(ctx, id, gameID, req.Cards)
	})
}

// RevealNext handles POST /api/v1/games/{id}/reveal
func (h *GameHandler) RevealNext(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.games.RevealNext)
}

// SkipBlack handles POST /api/v1/games/{id}/skip-black
func (h *GameHandler) SkipBlack(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.games.SkipBlack)
}

// StartRound handles POST /api/v1/games/{id}/start-round
func (h *GameHandler) StartRound(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.games.StartRound)
}

// SelectWinner handles POST /api/v1/games/{id}/winner
func (h *GameHandler) SelectWinner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerGUID string `json:"playerGuid"`
	}
	if err := decodeJSON(r, &req); err != nil || req.PlayerGUID == "" {
		writeError(w, http.StatusBadRequest, "playerGuid is required")
		return
	}
	h.command(w, r, func(ctx context.Context, id model.Identity, gameID string) (*model.Game, error) {
		return h.games.SelectWinnerCard(ctx, id, gameID, req.PlayerGUID)
	})
}

// NextRound handles POST /api/v1/games/{id}/next-round
func (h *GameHandler) NextRound(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.games.NextRound)
}

// SendChat handles POST /api/v1/games/{id}/chat
func (h *GameHandler) SendChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := auth.IdentityFromContext(r.Context())
	if err := h.games.SendChat(r.Context(), id, r.PathValue("id"), req.Message); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// Routes registers the game endpoints on mux, which is mounted under
// /api/v1 behind the identity middleware.
func (h *GameHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /games/public", h.ListPublicGames)
	mux.HandleFunc("GET /games/{id}", h.GetGame)
	mux.HandleFunc("POST /games", h.CreateGame)
	mux.HandleFunc("POST /games/{id}/join", h.JoinGame)
	mux.HandleFunc("POST /games/{id}/kick", h.KickPlayer)
	mux.HandleFunc("POST /games/{id}/bots", h.AddBot)
	mux.HandleFunc("POST /games/{id}/approval", h.SetPlayerApproval)
	mux.HandleFunc("PATCH /games/{id}/settings", h.UpdateSettings)
	mux.HandleFunc("POST /games/{id}/start", h.StartGame)
	mux.HandleFunc("POST /games/{id}/restart", h.RestartGame)
	mux.HandleFunc("POST /games/{id}/play", h.PlayCards)
	mux.HandleFunc("POST /games/{id}/forfeit", h.Forfeit)
	mux.HandleFunc("POST /games/{id}/reveal", h.RevealNext)
	mux.HandleFunc("POST /games/{id}/skip-black", h.SkipBlack)
	mux.HandleFunc("POST /games/{id}/start-round", h.StartRound)
	mux.HandleFunc("POST /games/{id}/winner", h.SelectWinner)
	mux.HandleFunc("POST /games/{id}/next-round", h.NextRound)
	mux.HandleFunc("POST /games/{id}/chat", h.SendChat)
}
