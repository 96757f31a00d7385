package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/quocanhngo/recovery/internal/model"
	"github.com/quocanhngo/recovery/internal/otp"
	"github.com/quocanhngo/recovery/internal/repository"
	"github.com/quocanhngo/recovery/pkg/auth"
	"github.com/quocanhngo/recovery/pkg/password"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc      *AuthService
	accounts *fakeAccountStore
	otpStore *otp.MemoryStore
	jwt      *auth.JWTManager
}

func newAuthFixture() *authFixture {
	accounts := newFakeAccountStore()
	store := otp.NewMemoryStore(otp.Config{Generate: fixedCode("654321")})
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	return &authFixture{
		svc:      NewAuthService(accounts, store, password.NewHasher(bcrypt.MinCost), jwtManager, zap.NewNop()),
		accounts: accounts,
		otpStore: store,
		jwt:      jwtManager,
	}
}

func TestRegister(t *testing.T) {
	g := NewWithT(t)
	f := newAuthFixture()
	ctx := context.Background()

	resp, err := f.svc.Register(ctx, model.RegisterRequest{Name: "Alice", Email: " Alice@X.com", Password: "Passw0rd!"})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(resp.Email).To(Equal("alice@x.com"))
	g.Expect(resp.ID).NotTo(Equal(uuid.Nil))

	_, err = f.svc.Register(ctx, model.RegisterRequest{Name: "Alice", Email: "alice@x.com", Password: "Passw0rd!"})
	g.Expect(errors.Is(err, repository.ErrEmailTaken)).To(BeTrue())
}

func TestRegister_WeakPassword(t *testing.T) {
	g := NewWithT(t)
	f := newAuthFixture()

	_, err := f.svc.Register(context.Background(), model.RegisterRequest{Name: "Bob", Email: "bob@x.com", Password: "password"})
	g.Expect(errors.Is(err, ErrWeakPassword)).To(BeTrue())

	var weak *WeakPasswordError
	g.Expect(errors.As(err, &weak)).To(BeTrue())
	g.Expect(weak.Violations).To(ConsistOf(password.RuleUpper, password.RuleDigit, password.RuleSpecial))
}

func TestLogin(t *testing.T) {
	g := NewWithT(t)
	f := newAuthFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, model.RegisterRequest{Name: "Alice", Email: "alice@x.com", Password: "Passw0rd!"})
	g.Expect(err).NotTo(HaveOccurred())

	resp, err := f.svc.Login(ctx, model.LoginRequest{Email: "ALICE@x.com", Password: "Passw0rd!"})
	g.Expect(err).NotTo(HaveOccurred())

	claims, err := f.jwt.ValidateToken(resp.Token)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(claims.AccountID).To(Equal(resp.Account.ID))
	g.Expect(claims.Email).To(Equal("alice@x.com"))

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "alice@x.com", Password: "wrong"})
	g.Expect(err).To(MatchError(ErrInvalidCredentials))

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "ghost@x.com", Password: "Passw0rd!"})
	g.Expect(err).To(MatchError(ErrInvalidCredentials))
}

func TestChangePassword(t *testing.T) {
	g := NewWithT(t)
	f := newAuthFixture()
	ctx := context.Background()

	account, err := f.svc.Register(ctx, model.RegisterRequest{Name: "Alice", Email: "alice@x.com", Password: "Passw0rd!"})
	g.Expect(err).NotTo(HaveOccurred())

	err = f.svc.ChangePassword(ctx, account.ID, model.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "N3wPassword!"})
	g.Expect(err).To(MatchError(ErrInvalidCredentials))

	err = f.svc.ChangePassword(ctx, account.ID, model.ChangePasswordRequest{CurrentPassword: "Passw0rd!", NewPassword: "short"})
	g.Expect(errors.Is(err, ErrWeakPassword)).To(BeTrue())

	err = f.svc.ChangePassword(ctx, account.ID, model.ChangePasswordRequest{CurrentPassword: "Passw0rd!", NewPassword: "N3wPassword!"})
	g.Expect(err).NotTo(HaveOccurred())

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "alice@x.com", Password: "N3wPassword!"})
	g.Expect(err).NotTo(HaveOccurred())
	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "alice@x.com", Password: "Passw0rd!"})
	g.Expect(err).To(MatchError(ErrInvalidCredentials))
}

func TestChangePassword_InvalidatesPendingRecoveryCode(t *testing.T) {
	g := NewWithT(t)
	f := newAuthFixture()
	ctx := context.Background()

	account, err := f.svc.Register(ctx, model.RegisterRequest{Name: "Alice", Email: "alice@x.com", Password: "Passw0rd!"})
	g.Expect(err).NotTo(HaveOccurred())

	code, err := f.otpStore.Issue(ctx, "alice@x.com")
	g.Expect(err).NotTo(HaveOccurred())

	err = f.svc.ChangePassword(ctx, account.ID, model.ChangePasswordRequest{CurrentPassword: "Passw0rd!", NewPassword: "N3wPassword!"})
	g.Expect(err).NotTo(HaveOccurred())

	result, err := f.otpStore.Verify(ctx, "alice@x.com", code)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result).To(Equal(otp.NotFound))
}

func TestOverlongPasswordIsWeak(t *testing.T) {
	g := NewWithT(t)
	f := newAuthFixture()
	ctx := context.Background()
	overlong := "Aa1!" + strings.Repeat("x", 80)

	_, err := f.svc.Register(ctx, model.RegisterRequest{Name: "Long", Email: "long@x.com", Password: overlong})
	g.Expect(errors.Is(err, ErrWeakPassword)).To(BeTrue())

	account, err := f.svc.Register(ctx, model.RegisterRequest{Name: "Alice", Email: "alice@x.com", Password: "Passw0rd!"})
	g.Expect(err).NotTo(HaveOccurred())

	err = f.svc.ChangePassword(ctx, account.ID, model.ChangePasswordRequest{CurrentPassword: "Passw0rd!", NewPassword: overlong})
	g.Expect(errors.Is(err, ErrWeakPassword)).To(BeTrue())
}
