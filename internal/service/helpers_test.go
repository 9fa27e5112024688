package service

import (
	"context"
	"errors"
	"testing"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/testutil"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Sup3r$ecret"

type testRepos struct {
	users    repository.UserRepository
	skills   repository.SkillRepository
	swaps    repository.SwapRepository
	feedback repository.FeedbackRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	db := testutil.NewTestDB(t)
	return testRepos{
		users:    repository.NewUserRepository(db),
		skills:   repository.NewSkillRepository(db),
		swaps:    repository.NewSwapRepository(db),
		feedback: repository.NewFeedbackRepository(db),
	}
}

func (r testRepos) userService(searcher UserSearcher) *UserService {
	return NewUserService(r.users, r.skills, searcher, nil, bcrypt.MinCost)
}

func registerInput(username string, offered ...string) RegisterInput {
	in := RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		Name:     "Name " + username,
	}
	for _, name := range offered {
		in.SkillsOffered = append(in.SkillsOffered, SkillInput{Name: name})
	}
	return in
}

func mustRegister(t *testing.T, svc *UserService, in RegisterInput) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	return u
}

func appErrorOf(t *testing.T, err error) *models.AppError {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr
}

type searcherStub struct {
	indexFn  func(context.Context, *models.User) error
	searchFn func(context.Context, models.BrowseFilter) ([]uint, error)
	indexed  []uint
}

func (s *searcherStub) IndexUser(ctx context.Context, u *models.User) error {
	s.indexed = append(s.indexed, u.ID)
	if s.indexFn == nil {
		return nil
	}
	return s.indexFn(ctx, u)
}

func (s *searcherStub) SearchUserIDs(ctx context.Context, f models.BrowseFilter) ([]uint, error) {
	return s.searchFn(ctx, f)
}

type swapRepoStub struct {
	createFn      func(context.Context, *models.SwapRequest) error
	getByIDFn     func(context.Context, uint) (*models.SwapRequest, error)
	listForUserFn func(context.Context, uint) ([]models.SwapRequest, error)
	transitionFn  func(context.Context, uint, models.SwapStatus) (bool, error)
	deleteFn      func(context.Context, uint) (bool, error)
}

func (s *swapRepoStub) Create(ctx context.Context, swap *models.SwapRequest) error {
	return s.createFn(ctx, swap)
}
func (s *swapRepoStub) GetByID(ctx context.Context, id uint) (*models.SwapRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *swapRepoStub) ListForUser(ctx context.Context, userID uint) ([]models.SwapRequest, error) {
	return s.listForUserFn(ctx, userID)
}
func (s *swapRepoStub) TransitionFromPending(ctx context.Context, id uint, to models.SwapStatus) (bool, error) {
	return s.transitionFn(ctx, id, to)
}
func (s *swapRepoStub) DeletePending(ctx context.Context, id uint) (bool, error) {
	return s.deleteFn(ctx, id)
}

func noopSwapRepo(swap *models.SwapRequest) *swapRepoStub {
	return &swapRepoStub{
		createFn:      func(context.Context, *models.SwapRequest) error { return nil },
		getByIDFn:     func(context.Context, uint) (*models.SwapRequest, error) { cp := *swap; return &cp, nil },
		listForUserFn: func(context.Context, uint) ([]models.SwapRequest, error) { return nil, nil },
		transitionFn:  func(context.Context, uint, models.SwapStatus) (bool, error) { return true, nil },
		deleteFn:      func(context.Context, uint) (bool, error) { return true, nil },
	}
}

type userRepoStub struct {
	getByIDFn func(context.Context, uint) (*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(context.Context, []uint) (map[uint]models.User, error) {
	return map[uint]models.User{}, nil
}
func (s *userRepoStub) GetByEmail(context.Context, string) (*models.User, error)    { return nil, nil }
func (s *userRepoStub) GetByUsername(context.Context, string) (*models.User, error) { return nil, nil }
func (s *userRepoStub) Create(context.Context, *models.User, []models.SkillRef, []models.SkillRef) error {
	return nil
}
func (s *userRepoStub) Update(context.Context, *models.User, []models.SkillRef, []models.SkillRef) error {
	return nil
}
func (s *userRepoStub) DeleteByUsername(context.Context, string) (bool, error) { return false, nil }
func (s *userRepoStub) ListPublic(context.Context, string) ([]models.User, error) {
	return nil, nil
}
func (s *userRepoStub) ListAfter(context.Context, uint, int) ([]models.User, error) {
	return nil, nil
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: "User"}, nil
		},
	}
}

type feedbackRepoStub struct {
	createFn func(context.Context, *models.Feedback) error
	listFn   func(context.Context, uint) ([]models.Feedback, error)
}

func (s *feedbackRepoStub) Create(ctx context.Context, fb *models.Feedback) error {
	return s.createFn(ctx, fb)
}
func (s *feedbackRepoStub) ListForUser(ctx context.Context, userID uint) ([]models.Feedback, error) {
	return s.listFn(ctx, userID)
}

func noopFeedbackRepo() *feedbackRepoStub {
	return &feedbackRepoStub{
		createFn: func(context.Context, *models.Feedback) error { return nil },
		listFn:   func(context.Context, uint) ([]models.Feedback, error) { return nil, nil },
	}
}
