package service

import (
	"context"
	"strings"
	"time"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/dto"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/repository/specification"
	"ai-counselor-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IWellnessService interface {
	LogMood(ctx context.Context, userId uuid.UUID, request *dto.LogMoodRequest) (*dto.MoodEntryResponse, error)
	LogActivity(ctx context.Context, userId uuid.UUID, request *dto.LogActivityRequest) (*dto.ActivityResponse, error)
	TodayActivities(ctx context.Context, userId uuid.UUID) (*dto.TodaySummaryResponse, error)
}

var activityTypes = map[string]bool{
	constant.ActivityTypeBreathing:  true,
	constant.ActivityTypeMeditation: true,
	constant.ActivityTypeJournaling: true,
	constant.ActivityTypeExercise:   true,
	constant.ActivityTypeGame:       true,
	constant.ActivityTypeTherapy:    true,
	constant.ActivityTypeMood:       true,
	constant.ActivityTypeOther:      true,
}

type wellnessService struct {
	uowFactory unitofwork.RepositoryFactory
	now        func() time.Time
}

func NewWellnessService(uowFactory unitofwork.RepositoryFactory) IWellnessService {
	return &wellnessService{
		uowFactory: uowFactory,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// LogMood stores the entry and mirrors it into the activity feed in one transaction.
func (s *wellnessService) LogMood(ctx context.Context, userId uuid.UUID, request *dto.LogMoodRequest) (*dto.MoodEntryResponse, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if request.Score < 0 || request.Score > 100 {
		return nil, ErrInvalidMoodScore
	}

	now := s.now()
	entry := &entity.MoodEntry{
		Id:        uuid.New(),
		UserId:    userId,
		Score:     request.Score,
		Note:      strings.TrimSpace(request.Note),
		CreatedAt: now,
	}
	activity := &entity.Activity{
		Id:          uuid.New(),
		UserId:      userId,
		Type:        constant.ActivityTypeMood,
		Name:        "Mood check-in",
		Description: entry.Note,
		CreatedAt:   now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.MoodEntryRepository().Create(ctx, entry); err != nil {
		return nil, err
	}
	if err := uow.ActivityRepository().Create(ctx, activity); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.MoodEntryResponse{
		Id:        entry.Id,
		Score:     entry.Score,
		Note:      entry.Note,
		CreatedAt: entry.CreatedAt,
	}, nil
}

func (s *wellnessService) LogActivity(ctx context.Context, userId uuid.UUID, request *dto.LogActivityRequest) (*dto.ActivityResponse, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !activityTypes[request.Type] {
		return nil, ErrInvalidActivity
	}

	activity := &entity.Activity{
		Id:              uuid.New(),
		UserId:          userId,
		Type:            request.Type,
		Name:            strings.TrimSpace(request.Name),
		Description:     strings.TrimSpace(request.Description),
		DurationMinutes: request.DurationMinutes,
		CreatedAt:       s.now(),
	}
	if err := s.uowFactory.NewUnitOfWork(ctx).ActivityRepository().Create(ctx, activity); err != nil {
		return nil, err
	}

	return activityResponse(activity), nil
}

// TodayActivities covers everything since midnight UTC.
func (s *wellnessService) TodayActivities(ctx context.Context, userId uuid.UUID) (*dto.TodaySummaryResponse, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	uow := s.uowFactory.NewUnitOfWork(ctx)

	activities, err := uow.ActivityRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.CreatedSince{Since: midnight},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	moods, err := uow.MoodEntryRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.CreatedSince{Since: midnight},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.TodaySummaryResponse{
		Activities: make([]*dto.ActivityResponse, 0, len(activities)),
		MoodCount:  len(moods),
	}
	for _, a := range activities {
		res.Activities = append(res.Activities, activityResponse(a))
		res.TotalMinutes += a.DurationMinutes
	}

	if len(moods) > 0 {
		total := 0
		for _, m := range moods {
			total += m.Score
		}
		avg := float64(total) / float64(len(moods))
		res.AverageMood = &avg
	}

	return res, nil
}

func activityResponse(a *entity.Activity) *dto.ActivityResponse {
	return &dto.ActivityResponse{
		Id:              a.Id,
		Type:            a.Type,
		Name:            a.Name,
		Description:     a.Description,
		DurationMinutes: a.DurationMinutes,
		CreatedAt:       a.CreatedAt,
	}
}
