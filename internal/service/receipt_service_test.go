package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/models"
	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

type failingLabels struct{}

func (failingLabels) Labels(context.Context, []string) ([]string, error) {
	return nil, errors.New("llm unreachable")
}

var _ = Describe("ReceiptService", func() {
	var (
		uploadDir string
		store     *storage.LocalStorage
		expenses  *fakeExpenseStore
		users     *fakeUserStore
		extractor pipeline.TextExtractor
		provider  pipeline.LabelProvider
		user      *models.User
		svc       *ReceiptService
		now       time.Time
		sleeps    []time.Duration
	)

	BeforeEach(func() {
		uploadDir = GinkgoT().TempDir()
		var err error
		store, err = storage.NewLocalStorage(uploadDir)
		Expect(err).NotTo(HaveOccurred())

		user = &models.User{ID: uuid.New(), Email: "ana@example.com", DefaultCurrency: "COP"}
		users = newFakeUserStore(user)
		expenses = newFakeExpenseStore()
		extractor = pipeline.StaticExtractor{Text: "EL SOL\n4 Shawarma MIXTO 27.00\nLeche entera 3,50\nGRACIAS"}
		provider = pipeline.NewKeywordProvider(nil)
		now = time.Date(2024, 5, 17, 15, 30, 0, 0, time.UTC)
		sleeps = nil
	})

	JustBeforeEach(func() {
		logger := zap.NewNop()
		svc = NewReceiptService(
			pipeline.NewNormalizer(pipeline.NormalizerOptions{}, logger),
			extractor,
			pipeline.NewCategoryClassifier(provider, time.Second, logger),
			store,
			expenses,
			users,
			ReceiptOptions{DefaultCurrency: "CAD", CommitAttempts: 3, CommitBackoff: 250 * time.Millisecond},
			logger,
		)
		svc.now = func() time.Time { return now }
		svc.sleep = func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return ctx.Err()
		}
	})

	upload := func() pipeline.RawUpload {
		data := receiptPNG()
		return pipeline.RawUpload{PrincipalID: user.ID, ContentType: "image/png", Size: int64(len(data)), Data: data}
	}

	storedFiles := func() []string {
		entries, err := os.ReadDir(filepath.Join(uploadDir, user.ID.String()))
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		Expect(err).NotTo(HaveOccurred())
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		return names
	}

	Describe("Preview", func() {
		It("returns classified items and keeps the image in the user's namespace", func() {
			resp, err := svc.Preview(context.Background(), upload())
			Expect(err).NotTo(HaveOccurred())

			owner, err := storage.Owner(resp.ImagePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(owner).To(Equal(user.ID.String()))
			Expect(store.Exists(resp.ImagePath)).To(BeTrue())

			Expect(resp.ExtractedText).To(ContainSubstring("Shawarma MIXTO"))
			Expect(resp.Items).To(HaveLen(2))
			Expect(resp.Items[0].Description).To(Equal("Shawarma MIXTO"))
			Expect(resp.Items[0].Amount.Equal(decimal.RequireFromString("27"))).To(BeTrue())
			Expect(resp.Items[0].Category).To(Equal("FOOD"))
			Expect(resp.Items[1].Description).To(Equal("Leche entera"))
			Expect(resp.Items[1].Category).To(Equal("GROCERIES"))
			for _, item := range resp.Items {
				Expect(item.Currency).To(Equal("COP"))
				Expect(item.ExpenseDate).To(Equal("2024-05-17"))
			}
		})

		It("never writes expenses", func() {
			_, err := svc.Preview(context.Background(), upload())
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses.calls).To(BeZero())
		})

		When("the user cannot be loaded", func() {
			BeforeEach(func() {
				users = newFakeUserStore()
			})

			It("falls back to the configured currency", func() {
				resp, err := svc.Preview(context.Background(), upload())
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.Items[0].Currency).To(Equal("CAD"))
			})
		})

		When("the classifier is unreachable", func() {
			BeforeEach(func() {
				provider = failingLabels{}
			})

			It("still previews every item as OTHER", func() {
				resp, err := svc.Preview(context.Background(), upload())
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.Items).To(HaveLen(2))
				for _, item := range resp.Items {
					Expect(item.Category).To(Equal("OTHER"))
				}
			})
		})

		When("nothing on the receipt looks like an item", func() {
			BeforeEach(func() {
				extractor = pipeline.StaticExtractor{Text: "THANK YOU"}
			})

			It("returns an empty list", func() {
				resp, err := svc.Preview(context.Background(), upload())
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.Items).NotTo(BeNil())
				Expect(resp.Items).To(BeEmpty())
			})
		})

		When("the OCR engine is unavailable", func() {
			BeforeEach(func() {
				extractor = pipeline.UnavailableExtractor{Reason: "tesseract missing"}
			})

			It("fails and removes the stored image", func() {
				_, err := svc.Preview(context.Background(), upload())
				Expect(err).To(MatchError(pipeline.ErrExtractionUnavailable))
				Expect(storedFiles()).To(BeEmpty())
			})
		})

		It("rejects undecodable uploads without storing anything", func() {
			_, err := svc.Preview(context.Background(), pipeline.RawUpload{
				PrincipalID: user.ID, ContentType: "image/jpeg", Data: []byte("not a jpeg"),
			})
			Expect(err).To(MatchError(pipeline.ErrDecode))
			Expect(storedFiles()).To(BeEmpty())
		})

		It("rejects disallowed content types", func() {
			_, err := svc.Preview(context.Background(), pipeline.RawUpload{
				PrincipalID: user.ID, ContentType: "application/pdf", Data: []byte("%PDF"),
			})
			Expect(err).To(MatchError(pipeline.ErrUnsupportedType))
		})
	})

	Describe("Confirm", func() {
		var (
			imagePath string
			req       *dto.ReceiptConfirmRequest
		)

		item := func(amount, description string) dto.ExpenseItem {
			return dto.ExpenseItem{
				Amount:      decimal.RequireFromString(amount),
				Currency:    "cad",
				Description: description,
				Category:    "FOOD",
				ExpenseDate: "2024-05-16",
			}
		}

		JustBeforeEach(func() {
			var err error
			imagePath, err = store.Store(user.ID, []byte("jpeg"), ".jpg")
			Expect(err).NotTo(HaveOccurred())
			req = &dto.ReceiptConfirmRequest{
				ImagePath: imagePath,
				Expenses:  []dto.ExpenseItem{item("27.00", " Shawarma MIXTO "), item("3.50", "Coffee")},
			}
		})

		It("saves every item linked to the receipt", func() {
			resp, err := svc.Confirm(context.Background(), user.ID, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.ImagePath).To(Equal(imagePath))
			Expect(resp.CreatedItems).To(HaveLen(2))
			Expect(resp.CreatedItems[0].Description).To(Equal("Shawarma MIXTO"))
			Expect(resp.CreatedItems[0].Currency).To(Equal("CAD"))
			Expect(resp.CreatedItems[0].ExpenseDate).To(Equal("2024-05-16"))
			Expect(*resp.CreatedItems[1].ImagePath).To(Equal(imagePath))
			Expect(expenses.count()).To(Equal(2))
		})

		It("defaults a missing date to today", func() {
			req.Expenses[0].ExpenseDate = ""
			resp, err := svc.Confirm(context.Background(), user.ID, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.CreatedItems[0].ExpenseDate).To(Equal("2024-05-17"))
		})

		It("rejects another user's image before touching anything", func() {
			stranger := uuid.New()
			_, err := svc.Confirm(context.Background(), stranger, req)
			Expect(err).To(MatchError(ErrOwnership))
			Expect(expenses.calls).To(BeZero())
		})

		It("rejects paths that escape the namespace", func() {
			req.ImagePath = user.ID.String() + "/../" + uuid.NewString() + "/receipt_x.jpg"
			_, err := svc.Confirm(context.Background(), user.ID, req)
			Expect(err).To(MatchError(ErrOwnership))

			req.ImagePath = "../../etc/passwd"
			_, err = svc.Confirm(context.Background(), user.ID, req)
			Expect(err).To(MatchError(ErrInvalidImagePath))
		})

		It("reports a missing image", func() {
			req.ImagePath = user.ID.String() + "/receipt_gone.jpg"
			_, err := svc.Confirm(context.Background(), user.ID, req)
			Expect(err).To(MatchError(ErrReceiptNotFound))
		})

		It("checks ownership before validating items", func() {
			req.Expenses = nil
			_, err := svc.Confirm(context.Background(), uuid.New(), req)
			Expect(err).To(MatchError(ErrOwnership))
		})

		It("reports every invalid field and saves nothing", func() {
			req.Expenses = []dto.ExpenseItem{
				item("27.00", "Shawarma"),
				{Amount: decimal.NewFromInt(-5), Currency: "dollars", Description: "  ", Category: "FOOD", ExpenseDate: "17/05/2024"},
			}
			_, err := svc.Confirm(context.Background(), user.ID, req)

			var verr *ValidationErrors
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Fields).To(ConsistOf(
				dto.FieldError{Index: 1, Field: "amount", Message: "must be greater than 0"},
				dto.FieldError{Index: 1, Field: "currency", Message: "must be a 3-letter currency code"},
				dto.FieldError{Index: 1, Field: "description", Message: "is required"},
				dto.FieldError{Index: 1, Field: "expense_date", Message: "must be a date in YYYY-MM-DD format"},
			))
			Expect(expenses.calls).To(BeZero())
		})

		It("rejects an empty list", func() {
			req.Expenses = []dto.ExpenseItem{}
			_, err := svc.Confirm(context.Background(), user.ID, req)
			var verr *ValidationErrors
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Fields[0].Field).To(Equal("expenses"))
		})

		It("rejects over-long descriptions", func() {
			long := make([]rune, 256)
			for i := range long {
				long[i] = 'é'
			}
			req.Expenses[0].Description = string(long)
			_, err := svc.Confirm(context.Background(), user.ID, req)
			var verr *ValidationErrors
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Fields[0].Field).To(Equal("description"))
		})

		When("the database fails transiently", func() {
			BeforeEach(func() {
				expenses.failures = 2
			})

			It("retries with a growing delay and succeeds", func() {
				resp, err := svc.Confirm(context.Background(), user.ID, req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.CreatedItems).To(HaveLen(2))
				Expect(expenses.calls).To(Equal(3))
				Expect(sleeps).To(Equal([]time.Duration{250 * time.Millisecond, 500 * time.Millisecond}))
			})
		})

		When("the database keeps failing", func() {
			BeforeEach(func() {
				expenses.failures = 10
			})

			It("gives up after three attempts without saving anything", func() {
				_, err := svc.Confirm(context.Background(), user.ID, req)
				Expect(err).To(MatchError(ErrPersistence))
				Expect(expenses.calls).To(Equal(3))
				Expect(expenses.count()).To(BeZero())
			})

			It("stops retrying once the request is cancelled", func() {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				_, err := svc.Confirm(ctx, user.ID, req)
				Expect(err).To(MatchError(ErrPersistence))
				Expect(expenses.calls).To(Equal(1))
			})
		})

		It("does not deduplicate repeated confirmations", func() {
			_, err := svc.Confirm(context.Background(), user.ID, req)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Confirm(context.Background(), user.ID, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses.count()).To(Equal(4))
		})
	})

	Describe("ReadImage", func() {
		It("serves the owner's image only", func() {
			path, err := store.Store(user.ID, []byte("jpeg"), ".jpg")
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.ReadImage(user.ID, path)).To(Equal([]byte("jpeg")))

			_, err = svc.ReadImage(uuid.New(), path)
			Expect(err).To(MatchError(ErrOwnership))

			_, err = svc.ReadImage(user.ID, user.ID.String()+"/receipt_none.jpg")
			Expect(err).To(MatchError(ErrReceiptNotFound))
		})
	})

	When("normalized copies are kept", func() {
		It("stores the normalized image next to the original", func() {
			svc.opts.KeepNormalized = true
			resp, err := svc.Preview(context.Background(), upload())
			Expect(err).NotTo(HaveOccurred())
			sibling, err := normalizedPath(resp.ImagePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Exists(sibling)).To(BeTrue())
		})
	})
})
