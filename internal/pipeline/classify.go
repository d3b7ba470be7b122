package pipeline

import (
	"context"
	"time"

	"ai-finance-manager/internal/models"

	"go.uber.org/zap"
)

// LabelProvider returns one raw category label per description, in order.
type LabelProvider interface {
	Labels(ctx context.Context, descriptions []string) ([]string, error)
}

// CategoryClassifier assigns a category to every description. It never fails:
// provider errors, timeouts and unknown labels all degrade to OTHER.
type CategoryClassifier struct {
	provider LabelProvider
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCategoryClassifier(provider LabelProvider, timeout time.Duration, logger *zap.Logger) *CategoryClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CategoryClassifier{provider: provider, timeout: timeout, logger: logger}
}

type labelResult struct {
	labels []string
	err    error
}

func (c *CategoryClassifier) Classify(ctx context.Context, descriptions []string) []models.Category {
	out := make([]models.Category, len(descriptions))
	for i := range out {
		out[i] = models.CategoryOther
	}
	if len(descriptions) == 0 || c.provider == nil {
		return out
	}

	unique, positions := dedupe(descriptions)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan labelResult, 1)
	go func() {
		labels, err := c.provider.Labels(ctx, unique)
		done <- labelResult{labels: labels, err: err}
	}()

	var res labelResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		c.logger.Warn("Category classification unavailable, using OTHER",
			zap.Int("items", len(descriptions)),
			zap.Error(res.err),
		)
		return out
	}
	if len(res.labels) != len(unique) {
		c.logger.Warn("Classifier returned unexpected label count",
			zap.Int("expected", len(unique)),
			zap.Int("got", len(res.labels)),
		)
	}

	for i, pos := range positions {
		if pos < len(res.labels) {
			out[i] = models.ParseCategory(res.labels[pos])
		}
	}
	return out
}

// dedupe returns the distinct descriptions and, for every input, its index
// into that list.
func dedupe(descriptions []string) ([]string, []int) {
	index := make(map[string]int, len(descriptions))
	unique := make([]string, 0, len(descriptions))
	positions := make([]int, len(descriptions))
	for i, d := range descriptions {
		pos, ok := index[d]
		if !ok {
			pos = len(unique)
			index[d] = pos
			unique = append(unique, d)
		}
		positions[i] = pos
	}
	return unique, positions
}
