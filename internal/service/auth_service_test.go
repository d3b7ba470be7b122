package service

import (
	"context"
	"errors"
	"time"

	"ai-finance-manager/internal/dto"
	"ai-finance-manager/pkg/auth"

	"github.com/google/uuid"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("AuthService", func() {
	var (
		users *fakeUserStore
		svc   *AuthService
		ctx   context.Context
	)

	BeforeEach(func() {
		users = newFakeUserStore()
		svc = NewAuthService(users, auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour), "CAD", zap.NewNop())
		ctx = context.Background()
	})

	register := func(email, password, currency string) (*dto.AuthResponse, error) {
		return svc.Register(ctx, &dto.RegisterRequest{Email: email, Password: password, DefaultCurrency: currency})
	}

	It("registers with a normalized email and default currency", func() {
		resp, err := register("  Ana@Example.COM ", "secret1", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.User.Email).To(Equal("ana@example.com"))
		Expect(resp.User.Username).To(Equal("ana"))
		Expect(resp.User.DefaultCurrency).To(Equal("CAD"))
		Expect(resp.TokenType).To(Equal("Bearer"))
		Expect(resp.AccessToken).NotTo(BeEmpty())
	})

	It("rejects a second account with the same email", func() {
		_, err := register("ana@example.com", "secret1", "USD")
		Expect(err).NotTo(HaveOccurred())
		_, err = register("ANA@example.com", "secret2", "USD")
		Expect(err).To(MatchError(ErrUserExists))
	})

	DescribeTable("rejecting bad registrations",
		func(email, password, currency, field string) {
			_, err := register(email, password, currency)
			var verr *ValidationErrors
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Fields[0].Field).To(Equal(field))
		},
		Entry("short password", "a@b.co", "12345", "", "password"),
		Entry("whitespace in password", "a@b.co", "secret 1", "", "password"),
		Entry("unsupported currency", "a@b.co", "secret1", "EUR", "default_currency"),
		Entry("malformed email", "not-an-email", "secret1", "", "email"),
	)

	It("logs in case-insensitively and refreshes", func() {
		_, err := register("ana@example.com", "secret1", "COP")
		Expect(err).NotTo(HaveOccurred())

		resp, err := svc.Login(ctx, &dto.LoginRequest{Email: "ANA@example.com", Password: "secret1"})
		Expect(err).NotTo(HaveOccurred())

		refreshed, err := svc.RefreshToken(ctx, resp.RefreshToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(refreshed.User.ID).To(Equal(resp.User.ID))

		_, err = svc.RefreshToken(ctx, resp.AccessToken)
		Expect(err).To(MatchError(ErrInvalidCredentials))
	})

	It("rejects a wrong password", func() {
		_, err := register("ana@example.com", "secret1", "")
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.Login(ctx, &dto.LoginRequest{Email: "ana@example.com", Password: "secret2"})
		Expect(err).To(MatchError(ErrInvalidCredentials))
	})

	It("returns the current profile", func() {
		resp, err := register("ana@example.com", "secret1", "USD")
		Expect(err).NotTo(HaveOccurred())
		me, err := svc.Me(ctx, uuid.MustParse(resp.User.ID))
		Expect(err).NotTo(HaveOccurred())
		Expect(me.DefaultCurrency).To(Equal("USD"))

		_, err = svc.Me(ctx, uuid.New())
		Expect(err).To(MatchError(ErrUserNotFound))
	})
})
