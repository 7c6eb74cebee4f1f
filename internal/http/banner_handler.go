package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mvolkov/go_storefront/internal/domain"
)

type BannersAPI interface {
	CreateBanner(ctx context.Context, b *domain.Banner) (*domain.Banner, error)
	GetBanner(ctx context.Context, id string) (*domain.Banner, error)
	ListBanners(ctx context.Context) ([]domain.Banner, error)
	ActiveBanner(ctx context.Context) (*domain.Banner, error)
	UpdateBanner(ctx context.Context, b *domain.Banner) (*domain.Banner, error)
	DeleteBanner(ctx context.Context, id string) error
}

type BannerHandler struct {
	banners BannersAPI
}

func NewBannerHandler(banners BannersAPI) *BannerHandler {
	return &BannerHandler{banners: banners}
}

type BannerRequestDTO struct {
	Message   string     `json:"message"`
	Link      string     `json:"link,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (dto *BannerRequestDTO) toDomain(id string) *domain.Banner {
	active := true
	if dto.IsActive != nil {
		active = *dto.IsActive
	}
	return &domain.Banner{
		ID:        id,
		Message:   dto.Message,
		Link:      dto.Link,
		IsActive:  active,
		ExpiresAt: dto.ExpiresAt,
	}
}

// Create is mounted behind RequireAdmin.
func (h *BannerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BannerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "invalid_banner", "message is required")
		return
	}

	banner, err := h.banners.CreateBanner(r.Context(), req.toDomain(""))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, banner)
}

// Get is mounted behind RequireAdmin; it backs the edit form.
func (h *BannerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bannerID")
	banner, err := h.banners.GetBanner(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, banner)
}

// List is mounted behind RequireAdmin.
func (h *BannerHandler) List(w http.ResponseWriter, r *http.Request) {
	banners, err := h.banners.ListBanners(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, banners)
}

// Active is the only public banner route; an empty object means no banner.
func (h *BannerHandler) Active(w http.ResponseWriter, r *http.Request) {
	banner, err := h.banners.ActiveBanner(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if banner == nil {
		respondJSON(w, http.StatusOK, map[string]string{})
		return
	}
	respondJSON(w, http.StatusOK, banner)
}

// Update is mounted behind RequireAdmin.
func (h *BannerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bannerID")

	var req BannerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "invalid_banner", "message is required")
		return
	}

	banner, err := h.banners.UpdateBanner(r.Context(), req.toDomain(id))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, banner)
}

// Delete is mounted behind RequireAdmin.
func (h *BannerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bannerID")
	if err := h.banners.DeleteBanner(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "banner deleted"})
}
