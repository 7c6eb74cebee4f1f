package service

import (
	"context"
	"errors"

	"github.com/mvolkov/go_storefront/internal/domain"
	"github.com/mvolkov/go_storefront/internal/repository"
)

var ErrBannerNotFound = errors.New("banner not found")

type BannerService struct {
	banners repository.BannerRepository
}

func NewBannerService(banners repository.BannerRepository) *BannerService {
	return &BannerService{banners: banners}
}

func (s *BannerService) CreateBanner(ctx context.Context, b *domain.Banner) (*domain.Banner, error) {
	if err := s.banners.CreateBanner(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BannerService) GetBanner(ctx context.Context, id string) (*domain.Banner, error) {
	banner, err := s.banners.GetBanner(ctx, id)
	if errors.Is(err, repository.ErrBannerNotFound) {
		return nil, ErrBannerNotFound
	}
	return banner, err
}

func (s *BannerService) ListBanners(ctx context.Context) ([]domain.Banner, error) {
	return s.banners.ListBanners(ctx)
}

// ActiveBanner returns the banner customers currently see, or nil when no
// active, unexpired banner exists. Absence is not an error.
func (s *BannerService) ActiveBanner(ctx context.Context) (*domain.Banner, error) {
	banner, err := s.banners.GetActiveBanner(ctx)
	if errors.Is(err, repository.ErrBannerNotFound) {
		return nil, nil
	}
	return banner, err
}

func (s *BannerService) UpdateBanner(ctx context.Context, b *domain.Banner) (*domain.Banner, error) {
	err := s.banners.UpdateBanner(ctx, b)
	if errors.Is(err, repository.ErrBannerNotFound) {
		return nil, ErrBannerNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BannerService) DeleteBanner(ctx context.Context, id string) error {
	err := s.banners.DeleteBanner(ctx, id)
	if errors.Is(err, repository.ErrBannerNotFound) {
		return ErrBannerNotFound
	}
	return err
}
