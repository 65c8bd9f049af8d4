package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/internal/users"
	"github.com/arjunmehta/cartly-backend/pkg/config"
	pkgmodels "github.com/arjunmehta/cartly-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
	"github.com/arjunmehta/cartly-backend/pkg/security"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	data      map[string]*pkgmodels.User
	created   *pkgmodels.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*pkgmodels.User{}}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := &pkgmodels.User{
		ID:           uuid.New(),
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: dto.PasswordHash,
		Phone:        dto.Phone,
	}
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func testRegisterService(repo *stubUserRepository) *registerService {
	return &registerService{
		db: stubTxRunner{},
		passwordCfg: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		userRepo: func(tx *gorm.DB) registerUserRepo { return repo },
	}
}

func TestRegisterCreatesUser(t *testing.T) {
	repo := newStubUserRepository()
	svc := testRegisterService(repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Shopper",
		Email:    "  Shopper@Example.COM ",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "shopper@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	if repo.created == nil {
		t.Fatal("expected user to be created")
	}
	if repo.created.PasswordHash == "correct horse" {
		t.Fatal("password must not be stored in cleartext")
	}
	ok, err := security.VerifyPassword("correct horse", repo.created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash should verify, ok=%v err=%v", ok, err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newStubUserRepository()
	repo.data["shopper@example.com"] = &pkgmodels.User{ID: uuid.New(), Email: "shopper@example.com"}
	svc := testRegisterService(repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Shopper",
		Email:    "shopper@example.com",
		Password: "correct horse",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := testRegisterService(newStubUserRepository())

	if _, err := svc.Register(context.Background(), RegisterRequest{Name: "x", Password: "pw"}); err == nil {
		t.Fatal("expected email validation error")
	}
	if _, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.com", Password: "pw"}); err == nil {
		t.Fatal("expected name validation error")
	}
}
