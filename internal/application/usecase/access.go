package usecase

import (
	"context"

	"coursemarket/internal/domain"

	"github.com/google/uuid"
)

type AccessUseCase struct {
	courses   CourseCatalog
	purchases PurchaseStore
}

func NewAccessUseCase(cc CourseCatalog, ps PurchaseStore) *AccessUseCase {
	return &AccessUseCase{courses: cc, purchases: ps}
}

// ResolveAccess reports how p relates to the course. The creator is never
// reported as a purchaser, whatever purchase rows exist.
func (uc *AccessUseCase) ResolveAccess(ctx context.Context, p domain.Principal, courseID uuid.UUID) (domain.Access, error) {
	course, err := uc.courses.GetCourseDetail(ctx, courseID)
	if err != nil {
		return domain.Access{}, err
	}
	return uc.resolve(ctx, p, course)
}

func (uc *AccessUseCase) resolve(ctx context.Context, p domain.Principal, course *domain.Course) (domain.Access, error) {
	if course.CreatorID == p.UserID {
		return domain.Access{IsCreator: true}, nil
	}
	purchased, err := uc.purchases.HasCompleted(ctx, p.UserID, course.ID)
	if err != nil {
		return domain.Access{}, err
	}
	return domain.Access{Purchased: purchased}, nil
}

// CourseDetail returns the course as p may see it: without entitlement only
// preview lectures keep their video URL.
func (uc *AccessUseCase) CourseDetail(ctx context.Context, p domain.Principal, courseID uuid.UUID) (*domain.CourseDetail, error) {
	course, err := uc.courses.GetCourseDetail(ctx, courseID)
	if err != nil {
		return nil, err
	}
	access, err := uc.resolve(ctx, p, course)
	if err != nil {
		return nil, err
	}
	return &domain.CourseDetail{Course: visibleTo(access, course), Purchased: access.Purchased, IsCreator: access.IsCreator}, nil
}

// Visible returns course as p may see it.
func (uc *AccessUseCase) Visible(ctx context.Context, p domain.Principal, course *domain.Course) (*domain.Course, error) {
	access, err := uc.resolve(ctx, p, course)
	if err != nil {
		return nil, err
	}
	return visibleTo(access, course), nil
}

func visibleTo(access domain.Access, course *domain.Course) *domain.Course {
	if access.Entitled() {
		return course
	}
	return course.Redacted()
}

type PurchaseUseCase struct {
	purchases PurchaseStore
}

func NewPurchaseUseCase(ps PurchaseStore) *PurchaseUseCase {
	return &PurchaseUseCase{purchases: ps}
}

// ListCompleted returns every completed purchase. It is not scoped to the caller.
func (uc *PurchaseUseCase) ListCompleted(ctx context.Context) ([]domain.PurchaseReport, error) {
	purchases, err := uc.purchases.ListCompleted(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PurchaseReport, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, domain.NewPurchaseReport(p))
	}
	return out, nil
}
