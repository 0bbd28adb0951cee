package auth_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/auth"
)

func TestAuthService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Service Suite")
}

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

// mockAuthRepository implements auth.UserRepository for a single account.
type mockAuthRepository struct {
	email        string
	passwordHash string
	userID       string
	status       string
	permissions  []string
	lastLogin    *time.Time
	touchError   error
}

func (m *mockAuthRepository) GetCredentials(email string) (string, string, string, error) {
	if email != m.email {
		return "", "", "", errors.New("user not found")
	}
	return m.passwordHash, m.userID, m.status, nil
}

func (m *mockAuthRepository) GetUserWithPermissions(userID string) (*auth.User, error) {
	if userID != m.userID {
		return nil, errors.New("user not found")
	}
	return &auth.User{ID: m.userID, Email: m.email, Permissions: m.permissions}, nil
}

func (m *mockAuthRepository) TouchLastLogin(userID string, at time.Time) error {
	if m.touchError != nil {
		return m.touchError
	}
	m.lastLogin = &at
	return nil
}

var _ = Describe("AuthService", func() {
	var (
		service *auth.Service
		repo    *mockAuthRepository
		tokens  *auth.JWTTokenGenerator
		ctx     context.Context
	)

	BeforeEach(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
		Expect(err).ToNot(HaveOccurred())

		repo = &mockAuthRepository{
			email:        "ayesha@fleetops.io",
			passwordHash: string(hash),
			userID:       "user_1",
			status:       "active",
			permissions:  []string{"ev_view", "admin_users_view"},
		}
		tokens = auth.NewJWTTokenGenerator(testAccessSecret, testRefreshSecret, 15*time.Minute, 24*time.Hour)
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = auth.NewService(repo, tokens, logger)
		ctx = context.Background()
	})

	Describe("Authenticate", func() {
		It("should return a token pair and stamp last login", func() {
			pair, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "ayesha@fleetops.io",
				Password: "correct-horse",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(pair.AccessToken).ToNot(BeEmpty())
			Expect(pair.RefreshToken).ToNot(BeEmpty())
			Expect(repo.lastLogin).ToNot(BeNil())

			claims, err := tokens.ValidateAccessToken(pair.AccessToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(claims.UserID).To(Equal("user_1"))
			Expect(claims.Email).To(Equal("ayesha@fleetops.io"))
		})

		It("should reject a wrong password", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "ayesha@fleetops.io",
				Password: "wrong-horse",
			})

			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("should reject an unknown email with the same error as a wrong password", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "nobody@fleetops.io",
				Password: "correct-horse",
			})

			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("should reject an inactive account", func() {
			repo.status = "inactive"

			_, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "ayesha@fleetops.io",
				Password: "correct-horse",
			})

			Expect(err).To(Equal(internal.ErrUserInactive))
		})

		It("should reject missing credentials", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{Email: "ayesha@fleetops.io"})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should still succeed when the last login stamp fails", func() {
			repo.touchError = errors.New("write timeout")

			_, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "ayesha@fleetops.io",
				Password: "correct-horse",
			})

			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("RefreshTokens", func() {
		It("should rotate the pair off a valid refresh token", func() {
			pair, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "ayesha@fleetops.io",
				Password: "correct-horse",
			})
			Expect(err).ToNot(HaveOccurred())

			rotated, err := service.RefreshTokens(ctx, pair.RefreshToken)

			Expect(err).ToNot(HaveOccurred())
			claims, err := tokens.ValidateAccessToken(rotated.AccessToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(claims.UserID).To(Equal("user_1"))
		})

		It("should reject an access token used as a refresh token", func() {
			pair, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "ayesha@fleetops.io",
				Password: "correct-horse",
			})
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RefreshTokens(ctx, pair.AccessToken)

			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("should reject garbage tokens", func() {
			_, err := service.RefreshTokens(ctx, "not.a.token")

			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})

	Describe("token validation", func() {
		It("should reject an expired access token", func() {
			expired := &auth.JWTTokenGenerator{
				AccessTokenSecret:  []byte(testAccessSecret),
				RefreshTokenSecret: []byte(testRefreshSecret),
				AccessTokenTTL:     -time.Minute,
				RefreshTokenTTL:    24 * time.Hour,
			}
			token, err := expired.GenerateAccessToken("user_1", "ayesha@fleetops.io")
			Expect(err).ToNot(HaveOccurred())

			_, err = tokens.ValidateAccessToken(token)

			Expect(err).To(Equal(internal.ErrTokenExpired))
		})

		It("should reject a token signed with the wrong secret", func() {
			other := auth.NewJWTTokenGenerator("completely-different-secret-value", testRefreshSecret, time.Minute, time.Hour)
			token, err := other.GenerateAccessToken("user_1", "ayesha@fleetops.io")
			Expect(err).ToNot(HaveOccurred())

			_, err = tokens.ValidateAccessToken(token)

			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})

	Describe("GetUserWithPermissions", func() {
		It("should load the principal with effective permissions", func() {
			principal, err := service.GetUserWithPermissions(ctx, "user_1")

			Expect(err).ToNot(HaveOccurred())
			Expect(principal.Permissions).To(ContainElement("admin_users_view"))
		})

		It("should return not found for an unknown principal", func() {
			_, err := service.GetUserWithPermissions(ctx, "user_ghost")

			Expect(err).To(Equal(internal.ErrUserNotFound))
		})
	})
})

var _ = Describe("PermissionChecker", func() {
	checker := auth.NewPermissionChecker()

	It("should let view, manage and admin permissions view users", func() {
		Expect(checker.CanViewUsers([]string{auth.PermUsersView})).To(BeTrue())
		Expect(checker.CanViewUsers([]string{auth.PermUsersManage})).To(BeTrue())
		Expect(checker.CanViewUsers([]string{auth.PermAdmin})).To(BeTrue())
		Expect(checker.CanViewUsers([]string{"ev_view"})).To(BeFalse())
	})

	It("should gate bulk execution on its own permission", func() {
		Expect(checker.CanExecuteBulk([]string{auth.PermBulkExecute})).To(BeTrue())
		Expect(checker.CanExecuteBulk([]string{auth.PermUsersManage})).To(BeFalse())
		Expect(checker.CanExecuteBulk([]string{auth.PermAdmin})).To(BeTrue())
	})
})
