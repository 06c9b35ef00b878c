package pilot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/budget-review/internal/application"
	domain "github.com/bryanwahyu/budget-review/internal/domain/pilot"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Save(ctx context.Context, r *domain.Request) error {
	return m.Called(ctx, r).Error(0)
}

var now = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestSubmit_RequiresEmail(t *testing.T) {
	repo := new(mockRepo)
	svc := &Service{Repo: repo, Clock: application.FixedClock{T: now}}

	err := svc.Submit(context.Background(), SubmitCommand{Email: "   ", City: "Springfield"})

	assert.ErrorIs(t, err, domain.ErrEmailRequired)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSubmit_TrimsAndSaves(t *testing.T) {
	repo := new(mockRepo)
	svc := &Service{Repo: repo, Clock: application.FixedClock{T: now}}

	repo.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Request) bool {
		return r.Email == "cfo@springfield.gov" &&
			r.Role == "Finance Director" &&
			r.State == "" &&
			r.UserAgent == "ua" &&
			r.CreatedAt.Equal(now)
	})).Return(nil)

	err := svc.Submit(context.Background(), SubmitCommand{
		Email: " cfo@springfield.gov ", Role: "Finance Director ", State: "  ", UserAgent: "ua",
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSubmit_StoreFailure(t *testing.T) {
	repo := new(mockRepo)
	svc := &Service{Repo: repo, Clock: application.FixedClock{T: now}}
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	err := svc.Submit(context.Background(), SubmitCommand{Email: "a@b.c"})

	assert.EqualError(t, err, "insert failed")
}

func TestSubmit_WithoutRepo(t *testing.T) {
	svc := &Service{Clock: application.FixedClock{T: now}}

	assert.NoError(t, svc.Submit(context.Background(), SubmitCommand{Email: "a@b.c"}))
}
