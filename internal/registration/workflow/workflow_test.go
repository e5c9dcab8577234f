package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/registration/models"
	"atelier/internal/store"
	dErrors "atelier/pkg/domain-errors"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestWorkflow(t *testing.T) (*Workflow, *store.Memory, *time.Time) {
	t.Helper()
	mem := store.NewMemory()
	now := base
	w := New(mem, WithClock(func() time.Time { return now }))
	return w, mem, &now
}

func TestSearchUnknownEmailRoutesToForm(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	require.NoError(t, w.Begin())

	require.NoError(t, w.SearchExisting(context.Background(), "JANE@Mail.com"))

	assert.Equal(t, StateNewParticipantForm, w.State())
	assert.Equal(t, "jane@mail.com", w.Form().Email, "normalized email prefills the form")
	notice := w.Notice()
	require.NotNil(t, notice, "not-found is a notice, not an error halt")
	assert.Contains(t, notice.Message, "jane@mail.com")
}

func TestSubmitNewCreatesPresentRegistration(t *testing.T) {
	w, mem, _ := newTestWorkflow(t)
	require.NoError(t, w.Begin())
	require.NoError(t, w.SearchExisting(context.Background(), "jane@mail.com"))

	err := w.SubmitNew(context.Background(), Form{
		Name:         "Jane",
		Email:        "JANE@mail.com",
		Phone:        "0601020304",
		Experience:   "beginner",
		Expectations: "learn pottery",
		Seats:        2,
	})
	require.NoError(t, err)
	assert.Equal(t, StateNewParticipantForm, w.State())
	assert.Empty(t, w.Form().Name, "form cleared after success")
	require.NotNil(t, w.Notice())

	docs, err := mem.GetOnce(context.Background(), store.CollectionRegistrations,
		store.Query{}.Where(models.FieldEmail, "jane@mail.com"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	reg := models.FromDocument(docs[0])
	assert.Equal(t, "jane@mail.com", reg.Email, "stored lowercase regardless of input case")
	assert.Equal(t, 2, reg.Seats)
	assert.True(t, reg.IsPresent())
	assert.Equal(t, base, reg.RegistrationDate)
}

func TestSearchFindsExistingAndConfirmUpdatesSeatsOnly(t *testing.T) {
	w, mem, now := newTestWorkflow(t)
	mem.Seed(store.CollectionRegistrations, store.Document{
		"id":                         "r1",
		"name":                       "Jane",
		models.FieldEmail:            "jane@mail.com",
		"phone":                      "0601020304",
		"seats":                      2,
		"present":                    true,
		models.FieldRegistrationDate: base.Add(-24 * time.Hour),
	})

	require.NoError(t, w.Begin())
	require.NoError(t, w.SearchExisting(context.Background(), " Jane@MAIL.com"))
	assert.Equal(t, StateConfirmingPresence, w.State())
	require.NotNil(t, w.Match())
	assert.Equal(t, "r1", w.Match().ID)

	*now = base.Add(time.Hour)
	require.NoError(t, w.ConfirmPresence(context.Background(), 3))
	assert.Equal(t, StateIdle, w.State())
	assert.Nil(t, w.Match())

	docs, err := mem.GetOnce(context.Background(), store.CollectionRegistrations, store.Query{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	reg := models.FromDocument(docs[0])
	assert.Equal(t, 3, reg.Seats)
	assert.Equal(t, "Jane", reg.Name, "name untouched")
	assert.Equal(t, "jane@mail.com", reg.Email, "email untouched")
	assert.True(t, reg.IsPresent())
	assert.Equal(t, base.Add(time.Hour), reg.RegistrationDate, "date restamped")
}

func TestConfirmPresenceRejectsSeatBounds(t *testing.T) {
	w, mem, _ := newTestWorkflow(t)
	mem.Seed(store.CollectionRegistrations, store.Document{
		"id": "r1", models.FieldEmail: "jane@mail.com", "seats": 2,
	})
	require.NoError(t, w.Begin())
	require.NoError(t, w.SearchExisting(context.Background(), "jane@mail.com"))

	for _, seats := range []int{0, 6} {
		err := w.ConfirmPresence(context.Background(), seats)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "seats=%d", seats)
		assert.Equal(t, StateConfirmingPresence, w.State(), "flow stays confirmable")
	}
}

func TestSubmitNewSurfacesDuplicateRace(t *testing.T) {
	w, mem, _ := newTestWorkflow(t)
	require.NoError(t, w.Begin())
	require.NoError(t, w.SearchExisting(context.Background(), "jane@mail.com"))

	// Someone else registered the same email between search and submit.
	mem.Seed(store.CollectionRegistrations, store.Document{
		"id": "r9", models.FieldEmail: "jane@mail.com", "name": "Jane",
	})

	form := Form{
		Name: "Jane", Email: "jane@mail.com", Phone: "06",
		Experience: "beginner", Expectations: "pottery", Seats: 1,
	}
	err := w.SubmitNew(context.Background(), form)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, StateNewParticipantForm, w.State())
	assert.Equal(t, form, w.Form(), "fields retained for correction")

	docs, getErr := mem.GetOnce(context.Background(), store.CollectionRegistrations, store.Query{})
	require.NoError(t, getErr)
	assert.Len(t, docs, 1, "no second registration created")
}

func TestSubmitNewValidationKeepsForm(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	require.NoError(t, w.Begin())
	require.NoError(t, w.ChooseNewParticipant())

	form := Form{Name: "Jane", Email: "", Phone: "06", Experience: "x", Expectations: "y", Seats: 1}
	err := w.SubmitNew(context.Background(), form)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, StateNewParticipantForm, w.State())
	assert.Equal(t, form, w.Form())
}

func TestSearchDuringOutageReturnsConnectivity(t *testing.T) {
	w, mem, _ := newTestWorkflow(t)
	require.NoError(t, w.Begin())
	mem.SimulateOutage()

	err := w.SearchExisting(context.Background(), "jane@mail.com")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConnectivity))
	assert.Equal(t, StateAwaitingTypeChoice, w.State(), "flow can be retried after reconnect")
}

func TestOutOfOrderOperationsRejected(t *testing.T) {
	w, _, _ := newTestWorkflow(t)

	assert.True(t, dErrors.HasCode(w.ChooseNewParticipant(), dErrors.CodeInvariantViolation))
	assert.True(t, dErrors.HasCode(w.SearchExisting(context.Background(), "a@x.com"), dErrors.CodeInvariantViolation))
	assert.True(t, dErrors.HasCode(w.ConfirmPresence(context.Background(), 1), dErrors.CodeInvariantViolation))
	assert.True(t, dErrors.HasCode(w.SubmitNew(context.Background(), Form{}), dErrors.CodeInvariantViolation))

	require.NoError(t, w.Begin())
	assert.True(t, dErrors.HasCode(w.Begin(), dErrors.CodeInvariantViolation), "no nested flows")
}

func TestNoticeExpiresAfterTTL(t *testing.T) {
	w, _, now := newTestWorkflow(t)
	require.NoError(t, w.Begin())
	require.NoError(t, w.SearchExisting(context.Background(), "nobody@mail.com"))
	require.NotNil(t, w.Notice())

	*now = base.Add(defaultNoticeTTL)
	assert.Nil(t, w.Notice(), "notice auto-dismisses")
}
