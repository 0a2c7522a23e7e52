package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
)

// Service exposes the public storefront catalog.
type Service interface {
	ListPacks(ctx context.Context, lang string) ([]PackView, error)
	GetPack(ctx context.Context, id int64, lang string) (*PackView, error)
}

type service struct {
	repo     Repository
	fallback string
	now      func() time.Time
}

func NewService(repo Repository, defaultLocale string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if defaultLocale == "" {
		return nil, fmt.Errorf("default locale required")
	}
	return &service{repo: repo, fallback: defaultLocale, now: time.Now}, nil
}

func (s *service) ListPacks(ctx context.Context, lang string) ([]PackView, error) {
	packs, err := s.repo.ListPacks(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list packs")
	}
	ids := make([]int64, 0, len(packs))
	for _, p := range packs {
		ids = append(ids, p.ID)
	}
	offers, err := s.repo.ListActiveOffersForPacks(ctx, ids, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	byPack := make(map[int64][]models.PackOffer, len(packs))
	for _, o := range offers {
		byPack[o.PackID] = append(byPack[o.PackID], o)
	}

	views := make([]PackView, 0, len(packs))
	for _, p := range packs {
		views = append(views, toPackView(p, byPack[p.ID], lang, s.fallback))
	}
	return views, nil
}

// GetPack returns an active pack with its active templates and live offers.
func (s *service) GetPack(ctx context.Context, id int64, lang string) (*PackView, error) {
	pack, err := s.repo.FindPack(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pack not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pack")
	}
	if !pack.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pack not found")
	}

	offers, err := s.repo.ListActiveOffers(ctx, pack.ID, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	templates, err := s.repo.ListTemplates(ctx, pack.ID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list templates")
	}

	view := toPackView(*pack, offers, lang, s.fallback)
	view.Templates = make([]TemplateView, 0, len(templates))
	for _, t := range templates {
		view.Templates = append(view.Templates, toTemplateView(t, lang, s.fallback))
	}
	return &view, nil
}
