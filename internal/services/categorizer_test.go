package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"nexusmc-api/internal/models"
	"nexusmc-api/internal/services/service_mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type CategorizerTestSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	classifier  *service_mocks.MockClassifierInterface
	auditLogger *service_mocks.MockAuditLoggerInterface
	metrics     *service_mocks.MockMetricsRecorderInterface
	logger      *slog.Logger
	categorizer CategorizerInterface
}

func TestCategorizerSuite(t *testing.T) {
	suite.Run(t, new(CategorizerTestSuite))
}

func (s *CategorizerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.classifier = service_mocks.NewMockClassifierInterface(s.ctrl)
	s.auditLogger = service_mocks.NewMockAuditLoggerInterface(s.ctrl)
	s.metrics = service_mocks.NewMockMetricsRecorderInterface(s.ctrl)
	s.metrics.EXPECT().IncrementCounter(MetricClassificationOutcome, gomock.Any()).AnyTimes()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.categorizer = NewCategorizer(s.classifier, s.auditLogger, s.metrics, s.logger, 4)
}

func (s *CategorizerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CategorizerTestSuite) TestCategorize_Success() {
	s.classifier.EXPECT().Classify(gomock.Any(), "Starbucks").
		Return(models.ClassificationSuccess(models.CategoryFoodAndDrink))

	s.Equal(models.CategoryFoodAndDrink, s.categorizer.Categorize(context.Background(), "Starbucks"))
}

func (s *CategorizerTestSuite) TestCategorize_FailureCollapsesToOther() {
	reasons := []models.FailureReason{
		models.FailureMissingCredential,
		models.FailureEmptyDescription,
		models.FailureCircuitOpen,
		models.FailureTransport,
		models.FailureTimeout,
		models.FailureHTTPStatus,
		models.FailureMalformedResponse,
		models.FailureUnknownLabel,
	}

	for _, reason := range reasons {
		s.Run(string(reason), func() {
			s.classifier.EXPECT().Classify(gomock.Any(), "Starbucks").
				Return(models.ClassificationFailure(reason, errors.New("cause")))
			s.auditLogger.EXPECT().LogClassificationFailed(gomock.Any(), reason, "cause")

			s.Equal(models.CategoryOther, s.categorizer.Categorize(context.Background(), "Starbucks"))
		})
	}
}

func (s *CategorizerTestSuite) TestCategorize_CountsOutcome() {
	metrics := service_mocks.NewMockMetricsRecorderInterface(s.ctrl)
	categorizer := NewCategorizer(s.classifier, s.auditLogger, metrics, s.logger, 1)

	s.classifier.EXPECT().Classify(gomock.Any(), "").
		Return(models.ClassificationFailure(models.FailureEmptyDescription, nil))
	s.auditLogger.EXPECT().LogClassificationFailed(gomock.Any(), models.FailureEmptyDescription, "")
	metrics.EXPECT().IncrementCounter(MetricClassificationOutcome, map[string]string{
		"status": "failure",
		"reason": "empty_description",
	})

	s.Equal(models.CategoryOther, categorizer.Categorize(context.Background(), ""))
}

func (s *CategorizerTestSuite) TestCategorizeExpenses_OnlyExpensesInOrder() {
	transactions := []models.Transaction{
		{TransactionID: "1", Name: "Starbucks", Amount: 4.5},
		{TransactionID: "2", Name: "Payroll", Amount: -1500},
		{TransactionID: "3", Name: "Uber", Amount: 12},
		{TransactionID: "4", Name: "Refund", Amount: 0},
		{TransactionID: "5", Name: "Netflix", Amount: 15.99},
	}

	s.classifier.EXPECT().Classify(gomock.Any(), "Starbucks").Return(models.ClassificationSuccess(models.CategoryFoodAndDrink))
	s.classifier.EXPECT().Classify(gomock.Any(), "Uber").Return(models.ClassificationSuccess(models.CategoryTransportation))
	s.classifier.EXPECT().Classify(gomock.Any(), "Netflix").Return(models.ClassificationSuccess(models.CategoryEntertainment))

	labels := s.categorizer.CategorizeExpenses(context.Background(), transactions)

	s.Equal([]models.CategoryLabel{
		models.CategoryFoodAndDrink,
		models.CategoryTransportation,
		models.CategoryEntertainment,
	}, labels)
}

func (s *CategorizerTestSuite) TestCategorizeExpenses_NoExpenses() {
	labels := s.categorizer.CategorizeExpenses(context.Background(), []models.Transaction{
		{Name: "Salary", Amount: -500},
	})

	s.Empty(labels)
	s.NotNil(labels)
}

func (s *CategorizerTestSuite) TestCategorizeExpenses_FailureIsPositional() {
	transactions := []models.Transaction{
		{Name: "Starbucks", Amount: 4.5},
		{Name: "???", Amount: 3},
		{Name: "Uber", Amount: 12},
	}

	s.classifier.EXPECT().Classify(gomock.Any(), "Starbucks").Return(models.ClassificationSuccess(models.CategoryFoodAndDrink))
	s.classifier.EXPECT().Classify(gomock.Any(), "???").Return(models.ClassificationFailure(models.FailureTimeout, context.DeadlineExceeded))
	s.classifier.EXPECT().Classify(gomock.Any(), "Uber").Return(models.ClassificationSuccess(models.CategoryTransportation))
	s.auditLogger.EXPECT().LogClassificationFailed(gomock.Any(), models.FailureTimeout, gomock.Any())

	labels := s.categorizer.CategorizeExpenses(context.Background(), transactions)

	s.Equal([]models.CategoryLabel{
		models.CategoryFoodAndDrink,
		models.CategoryOther,
		models.CategoryTransportation,
	}, labels)
}

// concurrencyProbe records the highest number of simultaneous Classify calls.
type concurrencyProbe struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *concurrencyProbe) Classify(ctx context.Context, description string) models.ClassificationOutcome {
	current := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	for {
		peak := p.peak.Load()
		if current <= peak || p.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	time.Sleep(5 * time.Millisecond)
	return models.ClassificationSuccess(models.CategoryShopping)
}

func (s *CategorizerTestSuite) TestCategorizeExpenses_BoundedConcurrency() {
	probe := &concurrencyProbe{}
	categorizer := NewCategorizer(probe, s.auditLogger, s.metrics, s.logger, 3)

	transactions := make([]models.Transaction, 20)
	for i := range transactions {
		transactions[i] = models.Transaction{Name: "Amazon", Amount: float64(i + 1)}
	}

	labels := categorizer.CategorizeExpenses(context.Background(), transactions)

	s.Len(labels, 20)
	s.LessOrEqual(probe.peak.Load(), int32(3))
	s.Positive(probe.peak.Load())
	for _, label := range labels {
		s.Equal(models.CategoryShopping, label)
	}
}

func (s *CategorizerTestSuite) TestNewCategorizer_DefaultsConcurrency() {
	categorizer := NewCategorizer(s.classifier, s.auditLogger, s.metrics, s.logger, 0).(*Categorizer)
	s.Equal(DefaultMaxConcurrency, categorizer.maxConcurrency)
}
