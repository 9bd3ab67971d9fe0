package review

import (
	"context"

	"github.com/google/uuid"

	"github.com/olawuwo-abideen/healthcare/internal/domain/identity"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

const msgReviewNotFound = "Review not found"

// UserDirectory resolves the doctor being reviewed.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	reviews ReviewRepository
	users   UserDirectory
}

func NewService(reviews ReviewRepository, users UserDirectory) *Service {
	return &Service{reviews: reviews, users: users}
}

func (s *Service) Create(ctx context.Context, authorID, doctorID uuid.UUID, req ReviewRequest) (*Review, error) {
	doctor, err := s.users.GetUser(ctx, doctorID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.NotFound("Doctor not found")
		}
		return nil, err
	}
	if !doctor.IsDoctor() {
		return nil, apperror.BadRequest("The specified user is not a doctor")
	}

	r := &Review{DoctorID: doctorID, PatientID: authorID, Rating: req.Rating, Comment: req.Comment}
	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, apperror.FromDB(err, msgReviewNotFound)
	}
	return r, nil
}

// ListByDoctor returns the doctor's reviews, newest first. A doctor with no
// reviews is reported as not found.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Review, error) {
	items, err := s.reviews.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperror.Internal(err, "list reviews")
	}
	if len(items) == 0 {
		return nil, apperror.NotFound("No reviews found for this doctor")
	}
	return items, nil
}

func (s *Service) Update(ctx context.Context, authorID, id uuid.UUID, req ReviewRequest) (*Review, error) {
	r, err := s.owned(ctx, authorID, id, "You can only update your own review")
	if err != nil {
		return nil, err
	}
	r.Rating = req.Rating
	r.Comment = req.Comment
	if err := s.reviews.Update(ctx, r); err != nil {
		return nil, apperror.FromDB(err, msgReviewNotFound)
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, authorID, id uuid.UUID) error {
	if _, err := s.owned(ctx, authorID, id, "You can only delete your own review"); err != nil {
		return err
	}
	return apperror.FromDB(s.reviews.Delete(ctx, id), msgReviewNotFound)
}

func (s *Service) owned(ctx context.Context, authorID, id uuid.UUID, forbidden string) (*Review, error) {
	r, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err, msgReviewNotFound)
	}
	if r.PatientID != authorID {
		return nil, apperror.Forbidden("%s", forbidden)
	}
	return r, nil
}
