package bulk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"atelier/internal/store"
	"atelier/internal/store/mocks"
	dErrors "atelier/pkg/domain-errors"
)

// BulkCoordinatorSuite covers partial-failure aggregation: every id is
// attempted and a failed id never aborts the rest.
type BulkCoordinatorSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockStore   *mocks.MockContract
	coordinator *Coordinator
}

func TestBulkCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(BulkCoordinatorSuite))
}

func (s *BulkCoordinatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockContract(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.coordinator = New(s.mockStore, WithLogger(logger), WithConcurrency(2))
}

func (s *BulkCoordinatorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *BulkCoordinatorSuite) TestAllDeletesSucceed() {
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		s.mockStore.EXPECT().
			Delete(gomock.Any(), store.CollectionRegistrations, id).
			Return(nil)
	}

	report := s.coordinator.Execute(ctx, store.CollectionRegistrations, OperationDelete, []string{"a", "b", "c"})

	s.Equal(3, report.Attempted)
	s.Empty(report.Failures)
	s.NoError(report.Err())
}

func (s *BulkCoordinatorSuite) TestPartialFailureIsReportedPerID() {
	ctx := context.Background()
	cause := errors.New("permission denied")
	s.mockStore.EXPECT().
		Delete(gomock.Any(), store.CollectionRegistrations, "a").
		Return(nil)
	s.mockStore.EXPECT().
		Delete(gomock.Any(), store.CollectionRegistrations, "b").
		Return(cause)
	s.mockStore.EXPECT().
		Delete(gomock.Any(), store.CollectionRegistrations, "c").
		Return(nil)

	report := s.coordinator.Execute(ctx, store.CollectionRegistrations, OperationDelete, []string{"a", "b", "c"})

	s.Equal(3, report.Attempted)
	s.Require().Len(report.Failures, 1)
	s.Equal("b", report.Failures[0].ID)
	s.ErrorIs(report.Failures[0].Err, cause)
	s.True(dErrors.HasCode(report.Err(), dErrors.CodePartialFailure))
}

func (s *BulkCoordinatorSuite) TestAllFailuresAreCollected() {
	ctx := context.Background()
	s.mockStore.EXPECT().
		Delete(gomock.Any(), store.CollectionOrders, gomock.Any()).
		Return(errors.New("store unreachable")).
		Times(3)

	report := s.coordinator.Execute(ctx, store.CollectionOrders, OperationDelete, []string{"x", "y", "z"})

	s.Len(report.Failures, 3)
	s.Equal([]string{"x", "y", "z"}, []string{
		report.Failures[0].ID, report.Failures[1].ID, report.Failures[2].ID,
	}, "failures reported in input order")
}

func (s *BulkCoordinatorSuite) TestEmptySelectionIsANoOp() {
	report := s.coordinator.Execute(context.Background(), store.CollectionOrders, OperationDelete, nil)

	s.Equal(0, report.Attempted)
	s.NoError(report.Err())
}

func (s *BulkCoordinatorSuite) TestUnsupportedOperationFailsEveryID() {
	report := s.coordinator.Execute(context.Background(), store.CollectionOrders, Operation("archive"), []string{"a"})

	s.Require().Len(report.Failures, 1)
	s.True(dErrors.HasCode(report.Failures[0].Err, dErrors.CodeInvalidInput))
}
