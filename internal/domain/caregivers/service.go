package caregivers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name          string
	Relationship  string
	Email         string
	Phone         string
	NotifyByEmail bool
	NotifyBySMS   bool
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Caregiver, error) {
	if strings.TrimSpace(userID) == "" {
		return Caregiver{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Caregiver{}, ErrInvalidInput
	}
	// Sin email ni teléfono no hay forma de escalar.
	if strings.TrimSpace(in.Email) == "" && strings.TrimSpace(in.Phone) == "" {
		return Caregiver{}, ErrInvalidInput
	}

	c := Caregiver{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          strings.TrimSpace(in.Name),
		Relationship:  strings.TrimSpace(in.Relationship),
		Email:         strings.TrimSpace(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		NotifyByEmail: in.NotifyByEmail,
		NotifyBySMS:   in.NotifyBySMS,
		CreatedAt:     s.now(),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return Caregiver{}, err
	}
	return c, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Caregiver, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}
