package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/mindpalace/internal/api/shared"
	"github.com/phrazzld/mindpalace/internal/platform/logger"
	"github.com/phrazzld/mindpalace/internal/service/palace"
)

// LocusHandler handles locus and palace-level HTTP requests
type LocusHandler struct {
	palaceService palace.Service
	logger        *slog.Logger
}

// NewLocusHandler creates a new LocusHandler
func NewLocusHandler(palaceService palace.Service, logger *slog.Logger) *LocusHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &LocusHandler{
		palaceService: palaceService,
		logger:        logger.With(slog.String("component", "locus_handler")),
	}
}

// ListLoci handles GET /loci requests.
func (h *LocusHandler) ListLoci(w http.ResponseWriter, r *http.Request) {
	summaries := h.palaceService.Loci(r.Context())

	resp := make([]LocusResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, LocusResponse{
			ID:        s.Locus.ID,
			Name:      s.Locus.Name,
			CardCount: s.CardCount,
			DueCount:  s.DueCount,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ListCards handles GET /loci/{locusId}/cards requests.
func (h *LocusHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	locusID, err := getPathParam(r, "locusId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cards, err := h.palaceService.CardsForLocus(r.Context(), locusID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardsToResponse(cards))
}

// CreateCard handles POST /loci/{locusId}/cards requests.
func (h *LocusHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	locusID, err := getPathParam(r, "locusId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	card, err := h.palaceService.CreateBlankCard(r.Context(), locusID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create card")
		return
	}

	log.Debug("card created",
		slog.String("card_id", card.ID),
		slog.String("locus_id", locusID))
	shared.RespondWithJSON(w, r, http.StatusCreated, cardToResponse(card))
}

// OpenLocus handles POST /loci/{locusId}/open requests. It returns the
// locus cards, creating a blank one first when the locus is empty.
func (h *LocusHandler) OpenLocus(w http.ResponseWriter, r *http.Request) {
	locusID, err := getPathParam(r, "locusId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cards, err := h.palaceService.OpenLocus(r.Context(), locusID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to open locus")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardsToResponse(cards))
}

// GetStats handles GET /stats requests.
func (h *LocusHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, statsToResponse(h.palaceService.Stats(r.Context())))
}
