package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/models"
	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const normalizedSuffix = ".normalized.png"

// ExpenseWriter persists a confirmed batch atomically.
type ExpenseWriter interface {
	CreateBatch(ctx context.Context, expenses []*models.Expense) error
}

// UserLookup resolves the principal's profile.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type ReceiptOptions struct {
	DefaultCurrency string
	KeepNormalized  bool
	CommitAttempts  int
	CommitBackoff   time.Duration
}

// ReceiptService turns uploaded receipt photos into expense previews and
// commits confirmed previews.
type ReceiptService struct {
	normalizer *pipeline.Normalizer
	extractor  pipeline.TextExtractor
	classifier *pipeline.CategoryClassifier
	storage    storage.Storage
	expenses   ExpenseWriter
	users      UserLookup
	opts       ReceiptOptions
	logger     *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewReceiptService(
	normalizer *pipeline.Normalizer,
	extractor pipeline.TextExtractor,
	classifier *pipeline.CategoryClassifier,
	store storage.Storage,
	expenses ExpenseWriter,
	users UserLookup,
	opts ReceiptOptions,
	logger *zap.Logger,
) *ReceiptService {
	if opts.CommitAttempts < 1 {
		opts.CommitAttempts = 1
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = pipeline.DefaultCurrency
	}
	return &ReceiptService{
		normalizer: normalizer,
		extractor:  extractor,
		classifier: classifier,
		storage:    store,
		expenses:   expenses,
		users:      users,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

func (s *ReceiptService) MaxUploadBytes() int64 {
	return s.normalizer.MaxBytes()
}

// Preview runs the whole pipeline on an upload. Nothing is written to the
// database; the stored image path is the handle for a later Confirm.
func (s *ReceiptService) Preview(ctx context.Context, upload pipeline.RawUpload) (*dto.ReceiptPreviewResponse, error) {
	start := s.now()

	img, err := s.normalizer.Normalize(upload)
	if err != nil {
		return nil, err
	}

	ext, _ := pipeline.ExtensionFor(upload.ContentType)
	path, err := s.storage.Store(upload.PrincipalID, upload.Data, ext)
	if err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}

	if s.opts.KeepNormalized {
		s.storeNormalized(path, img)
	}

	text, err := s.extractor.ExtractText(ctx, img)
	if err != nil {
		s.discard(path)
		return nil, err
	}
	text = pipeline.CleanText(text)

	items := pipeline.ParseLineItems(text, s.currencyFor(ctx, upload.PrincipalID))

	descriptions := make([]string, len(items))
	for i, item := range items {
		descriptions[i] = item.Description
	}
	categories := s.classifier.Classify(ctx, descriptions)

	today := startOfDay(s.now()).Format(dto.DateLayout)
	resp := &dto.ReceiptPreviewResponse{
		ImagePath:     path,
		ExtractedText: text,
		Items:         make([]dto.ExpenseItem, len(items)),
	}
	for i, item := range items {
		resp.Items[i] = dto.ExpenseItem{
			Amount:      item.Amount,
			Currency:    item.Currency,
			Description: item.Description,
			Category:    string(categories[i]),
			ExpenseDate: today,
		}
	}

	s.logger.Info("Receipt preview generated",
		zap.String("user_id", upload.PrincipalID.String()),
		zap.String("image_path", path),
		zap.Int("text_length", len(text)),
		zap.Int("items", len(items)),
		zap.Float64("skew", img.Skew),
		zap.Duration("elapsed", s.now().Sub(start)),
	)
	return resp, nil
}

// Confirm validates the user-reviewed items and saves them as one batch.
// Checks run in order: path syntax, ownership, existence, item fields.
func (s *ReceiptService) Confirm(ctx context.Context, userID uuid.UUID, req *dto.ReceiptConfirmRequest) (*dto.ReceiptConfirmResponse, error) {
	path, err := s.authorizeImagePath(userID, req.ImagePath)
	if err != nil {
		return nil, err
	}

	exists, err := s.storage.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to check receipt image: %w", err)
	}
	if !exists {
		return nil, ErrReceiptNotFound
	}

	now := s.now().UTC()
	expenses, err := s.buildExpenses(userID, path, req.Expenses, now)
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, expenses); err != nil {
		return nil, err
	}

	resp := &dto.ReceiptConfirmResponse{
		ImagePath:    path,
		CreatedItems: make([]dto.ExpenseResponse, len(expenses)),
	}
	for i, e := range expenses {
		resp.CreatedItems[i] = toExpenseResponse(e)
	}

	s.logger.Info("Receipt confirmed",
		zap.String("user_id", userID.String()),
		zap.String("image_path", path),
		zap.Int("created", len(expenses)),
	)
	return resp, nil
}

// ReadImage returns a stored receipt image owned by userID.
func (s *ReceiptService) ReadImage(userID uuid.UUID, rawPath string) ([]byte, error) {
	path, err := s.authorizeImagePath(userID, rawPath)
	if err != nil {
		return nil, err
	}
	data, err := s.storage.Read(path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrReceiptNotFound
	}
	return data, err
}

func (s *ReceiptService) authorizeImagePath(userID uuid.UUID, raw string) (string, error) {
	path, err := storage.CleanPath(raw)
	if err != nil {
		return "", ErrInvalidImagePath
	}
	owner, err := storage.Owner(path)
	if err != nil {
		return "", ErrInvalidImagePath
	}
	if owner != userID.String() {
		s.logger.Warn("Receipt access denied",
			zap.String("user_id", userID.String()),
			zap.String("image_path", path),
		)
		return "", ErrOwnership
	}
	return path, nil
}

func (s *ReceiptService) buildExpenses(userID uuid.UUID, path string, items []dto.ExpenseItem, now time.Time) ([]*models.Expense, error) {
	errs := &ValidationErrors{}
	if len(items) == 0 {
		errs.Add(-1, "expenses", "must contain at least one item")
		return nil, errs
	}

	today := startOfDay(now)
	expenses := make([]*models.Expense, 0, len(items))
	for i, item := range items {
		fields := validateExpenseItem(i, item, today, errs)
		receiptPath := path
		expenses = append(expenses, &models.Expense{
			ID:          uuid.New(),
			UserID:      userID,
			Amount:      fields.Amount,
			Currency:    fields.Currency,
			Description: fields.Description,
			Category:    fields.Category,
			ExpenseDate: fields.ExpenseDate,
			ReceiptPath: &receiptPath,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return expenses, nil
}

// commit retries the whole batch with linear backoff. Each attempt is its own
// transaction, so a failed attempt leaves nothing behind.
func (s *ReceiptService) commit(ctx context.Context, expenses []*models.Expense) error {
	var lastErr error
	for attempt := 1; attempt <= s.opts.CommitAttempts; attempt++ {
		lastErr = s.expenses.CreateBatch(ctx, expenses)
		if lastErr == nil {
			return nil
		}
		s.logger.Warn("Saving expenses failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.opts.CommitAttempts),
			zap.Error(lastErr),
		)
		if attempt == s.opts.CommitAttempts {
			break
		}
		if err := s.sleep(ctx, s.opts.CommitBackoff*time.Duration(attempt)); err != nil {
			break
		}
	}
	s.logger.Error("Giving up on saving expenses", zap.Int("items", len(expenses)), zap.Error(lastErr))
	return fmt.Errorf("%w: %v", ErrPersistence, lastErr)
}

func (s *ReceiptService) currencyFor(ctx context.Context, userID uuid.UUID) string {
	if s.users == nil {
		return s.opts.DefaultCurrency
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user.DefaultCurrency == "" {
		return s.opts.DefaultCurrency
	}
	return user.DefaultCurrency
}

func (s *ReceiptService) storeNormalized(path string, img *pipeline.NormalizedImage) {
	data, err := img.PNG()
	if err == nil {
		_, err = s.storage.Attach(path, normalizedSuffix, data)
	}
	if err != nil {
		s.logger.Warn("Failed to keep normalized receipt", zap.String("image_path", path), zap.Error(err))
	}
}

func (s *ReceiptService) discard(path string) {
	if err := s.storage.Delete(path); err != nil {
		s.logger.Warn("Failed to remove receipt image", zap.String("image_path", path), zap.Error(err))
	}
	if s.opts.KeepNormalized {
		if sibling, err := normalizedPath(path); err == nil {
			_ = s.storage.Delete(sibling)
		}
	}
}

func normalizedPath(path string) (string, error) {
	clean, err := storage.CleanPath(path)
	if err != nil {
		return "", err
	}
	for i := len(clean) - 1; i >= 0 && clean[i] != '/'; i-- {
		if clean[i] == '.' {
			return clean[:i] + normalizedSuffix, nil
		}
	}
	return clean + normalizedSuffix, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func toExpenseResponse(e *models.Expense) dto.ExpenseResponse {
	resp := dto.ExpenseResponse{
		ID:          e.ID.String(),
		Amount:      e.Amount,
		Currency:    e.Currency,
		Description: e.Description,
		Category:    e.Category,
		ExpenseDate: e.ExpenseDate.Format(dto.DateLayout),
		ImagePath:   e.ReceiptPath,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
	if e.DeletedAt != nil {
		deleted := e.DeletedAt.Format(time.RFC3339)
		resp.DeletedAt = &deleted
	}
	return resp
}
