package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/mindpalace/internal/api/shared"
	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/platform/logger"
	"github.com/phrazzld/mindpalace/internal/service/palace"
)

// CardHandler handles card-related HTTP requests
type CardHandler struct {
	palaceService palace.Service
	logger        *slog.Logger
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(palaceService palace.Service, logger *slog.Logger) *CardHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &CardHandler{
		palaceService: palaceService,
		logger:        logger.With(slog.String("component", "card_handler")),
	}
}

// GetNextReviewCard handles GET /cards/next requests.
// The optional locus query parameter restricts the search to one locus.
func (h *CardHandler) GetNextReviewCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	locusID := r.URL.Query().Get("locus")

	card, err := h.palaceService.NextDueCard(r.Context(), locusID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get next review card")
		return
	}

	log.Debug("retrieved next review card",
		slog.String("card_id", card.ID),
		slog.String("locus_id", card.LocusID))
	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// GetCard handles GET /cards/{id} requests.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	card, err := h.palaceService.GetCard(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get card")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// EditCard handles PUT /cards/{id} requests.
// Only the text fields present in the body are changed.
func (h *CardHandler) EditCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateCardRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	updated, err := h.palaceService.UpdateCard(r.Context(), cardID, palace.CardEdit{
		Front:     req.Front,
		Back:      req.Back,
		ImagePath: req.ImagePath,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to edit card")
		return
	}

	log.Debug("card edited", slog.String("card_id", cardID))
	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(updated))
}

// DeleteCard handles DELETE /cards/{id} requests.
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.palaceService.DeleteCard(r.Context(), cardID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete card")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SubmitAnswer handles POST /cards/{id}/answer requests.
// It grades the card and returns it with its new schedule.
func (h *CardHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req SubmitAnswerRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	grade, err := domain.ParseGrade(req.Grade)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	card, err := h.palaceService.GradeCard(r.Context(), cardID, grade)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	log.Debug("answer submitted",
		slog.String("card_id", cardID),
		slog.String("grade", grade.String()),
		slog.Int("interval_days", card.IntervalDays))
	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// PostponeCard handles POST /cards/{id}/postpone requests.
func (h *CardHandler) PostponeCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req PostponeCardRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.palaceService.PostponeCard(r.Context(), cardID, req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to postpone card")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}
