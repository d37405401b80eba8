package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/motortribe/motortribe/internal/platform/logger"
	"github.com/motortribe/motortribe/internal/platform/response"
	"github.com/motortribe/motortribe/internal/search/app/service"
)

// SearchHandler exposes the post search endpoint
type SearchHandler struct {
	service *service.SearchService
	logger  logger.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service *service.SearchService, logger logger.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the search routes
func (h *SearchHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/community/search", h.Search).Methods("GET")
}

type searchResultDTO struct {
	PostID      int64  `json:"postId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Search handles GET /community/search?q=...&max=...
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	maxResults := 0
	if raw := r.URL.Query().Get("max"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(w, "max must be a non-negative integer")
			return
		}
		maxResults = parsed
	}

	hits := h.service.Search(r.Context(), query, maxResults)

	results := make([]searchResultDTO, 0, len(hits))
	for _, hit := range hits {
		results = append(results, searchResultDTO{
			PostID:      hit.Document.PostID,
			Title:       hit.Document.Title,
			Description: hit.Document.Description,
		})
	}

	response.JSON(w, http.StatusOK, results)
}
