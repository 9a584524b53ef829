package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/aayra/pkg/models"
)

// fakeSessionStore mimics the repository: it assigns ids, sequence numbers
// and composed names, and hands out copies so callers cannot mutate stored
// state without UpdateStatus.
type fakeSessionStore struct {
	sessions      map[string]*models.StudySession
	nextID        int
	statusUpdates int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.StudySession)}
}

func (f *fakeSessionStore) Create(_ context.Context, session *models.StudySession) error {
	f.nextID++
	session.ID = fmt.Sprintf("s%d", f.nextID)

	max := 0
	for _, s := range f.sessions {
		if s.UserID == session.UserID && s.SubjectName == session.SubjectName && s.TopicName == session.TopicName && s.SequenceNumber > max {
			max = s.SequenceNumber
		}
	}
	session.SequenceNumber = max + 1
	session.SessionName = models.ComposeSessionName(session.SubjectName, session.TopicName, session.SequenceNumber)

	stored := *session
	f.sessions[session.ID] = &stored
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id string) (*models.StudySession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	clone := *s
	return &clone, nil
}

func (f *fakeSessionStore) UpdateStatus(_ context.Context, id string, status models.SessionStatus) error {
	s, ok := f.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	s.Status = status
	f.statusUpdates++
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return fmt.Errorf("session %s not found", id)
	}
	delete(f.sessions, id)
	return nil
}

type fakeReviewSeeder struct {
	entries []*models.ReviewCycleEntry
}

func (f *fakeReviewSeeder) Create(_ context.Context, entry *models.ReviewCycleEntry) error {
	stored := *entry
	stored.ID = fmt.Sprintf("e%d", len(f.entries)+1)
	f.entries = append(f.entries, &stored)
	return nil
}

type fakeContentStore struct {
	saved map[string]*models.GeneratedContent
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{saved: make(map[string]*models.GeneratedContent)}
}

func (f *fakeContentStore) Save(_ context.Context, sessionID string, stage int, content *models.GeneratedContent) error {
	f.saved[fmt.Sprintf("%s/%d", sessionID, stage)] = content
	return nil
}

type fakeGenerator struct {
	fail bool
}

func (g *fakeGenerator) Generate(_ context.Context, subject, topic string, _ []string) (*models.GeneratedContent, error) {
	if g.fail {
		return nil, errors.New("model unavailable")
	}
	return &models.GeneratedContent{Summary: "generated for " + subject + " / " + topic}, nil
}

func (g *fakeGenerator) Fallback(subject, topic string) *models.GeneratedContent {
	return &models.GeneratedContent{Summary: "fallback for " + subject + " / " + topic}
}

var testToday = time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)

func newTestController() (*Controller, *fakeSessionStore, *fakeReviewSeeder, *fakeContentStore, *fakeGenerator) {
	sessions := newFakeSessionStore()
	reviews := &fakeReviewSeeder{}
	contents := newFakeContentStore()
	generator := &fakeGenerator{}
	c := New(sessions, reviews, contents, generator)
	c.SetClock(func() time.Time { return testToday })
	return c, sessions, reviews, contents, generator
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	c, _, _, _, _ := newTestController()

	session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
	require.NoError(t, err)
	require.Equal(t, models.StatusFocusInProgress, session.Status)
	require.Equal(t, 1, session.SequenceNumber)
	require.Equal(t, "Math - Algebra - 1", session.SessionName)

	pending, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, false)
	require.NoError(t, err)
	require.Equal(t, models.StatusFocusPending, pending.Status)
	require.Equal(t, 2, pending.SequenceNumber)
}

func TestCreateSessionSequencePerSubjectTopic(t *testing.T) {
	ctx := context.Background()
	c, _, _, _, _ := newTestController()

	for i := 1; i <= 3; i++ {
		s, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
		require.NoError(t, err)
		require.Equal(t, i, s.SequenceNumber)
	}

	// Different topic starts its own sequence, as does a different user
	s, err := c.CreateSession(ctx, 42, "Math", "Geometry", 25, 5, true)
	require.NoError(t, err)
	require.Equal(t, 1, s.SequenceNumber)

	s, err = c.CreateSession(ctx, 7, "Math", "Algebra", 25, 5, true)
	require.NoError(t, err)
	require.Equal(t, 1, s.SequenceNumber)
}

func TestCreateSessionValidation(t *testing.T) {
	ctx := context.Background()
	c, _, _, _, _ := newTestController()

	_, err := c.CreateSession(ctx, 42, "", "Algebra", 25, 5, true)
	require.Error(t, err)
	_, err = c.CreateSession(ctx, 42, "Math", "", 25, 5, true)
	require.Error(t, err)
	_, err = c.CreateSession(ctx, 42, "Math", "Algebra", 0, 5, true)
	require.Error(t, err)
}

func TestAdvanceFullFlowSeedsFirstReview(t *testing.T) {
	ctx := context.Background()
	c, sessions, reviews, _, _ := newTestController()

	var changes []string
	c.SetStatusListener(func(id string, from, to models.SessionStatus) {
		changes = append(changes, string(from)+">"+string(to))
	})

	session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
	require.NoError(t, err)

	for _, event := range []Event{EventFocusTimerFinished, EventMaterialsSubmitted, EventValidationFinished, EventBreakFinished} {
		_, err = c.Advance(ctx, session.ID, event)
		require.NoError(t, err)
	}

	stored, err := sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, stored.Status)

	// Exactly one stage-1 entry, due tomorrow
	require.Len(t, reviews.entries, 1)
	entry := reviews.entries[0]
	require.Equal(t, session.ID, entry.SessionID)
	require.Equal(t, int64(42), entry.UserID)
	require.Equal(t, 1, entry.ReviewStage)
	require.Equal(t, "2026-03-10", entry.FirstAppearanceDate)
	require.Equal(t, "2026-03-11", entry.DueDate)
	require.Equal(t, models.ReviewPending, entry.Status)

	require.Equal(t, []string{
		"focus_inprogress>upload_pending",
		"upload_pending>validating",
		"validating>break_pending",
		"break_pending>completed",
	}, changes)
}

func TestAdvanceRejectsInvalidEvent(t *testing.T) {
	ctx := context.Background()
	c, sessions, reviews, _, _ := newTestController()

	session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
	require.NoError(t, err)
	updatesBefore := sessions.statusUpdates

	// Break cannot finish while focus is running
	_, err = c.Advance(ctx, session.ID, EventBreakFinished)
	var invalid *models.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, models.StatusFocusInProgress, invalid.From)
	require.Equal(t, models.StatusCompleted, invalid.To)

	// No write happened and nothing was seeded
	require.Equal(t, updatesBefore, sessions.statusUpdates)
	stored, _ := sessions.GetByID(ctx, session.ID)
	require.Equal(t, models.StatusFocusInProgress, stored.Status)
	require.Empty(t, reviews.entries)

	_, err = c.Advance(ctx, session.ID, Event("telekinesis"))
	require.Error(t, err)
}

func TestSubmitMaterialsStoresGeneratedContent(t *testing.T) {
	ctx := context.Background()
	c, _, _, contents, _ := newTestController()

	session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
	require.NoError(t, err)
	_, err = c.Advance(ctx, session.ID, EventFocusTimerFinished)
	require.NoError(t, err)

	updated, content, err := c.SubmitMaterials(ctx, session.ID, []string{"notes on quadratic equations"})
	require.NoError(t, err)
	require.Equal(t, models.StatusValidating, updated.Status)
	require.Equal(t, "generated for Math / Algebra", content.Summary)
	require.Equal(t, content, contents.saved[session.ID+"/0"])
}

func TestSubmitMaterialsFallsBackOnGenerationFailure(t *testing.T) {
	ctx := context.Background()
	c, sessions, _, contents, generator := newTestController()
	generator.fail = true

	session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
	require.NoError(t, err)
	_, err = c.Advance(ctx, session.ID, EventFocusTimerFinished)
	require.NoError(t, err)

	updated, content, err := c.SubmitMaterials(ctx, session.ID, []string{"notes"})
	require.NoError(t, err)

	// The failure does not break the status machine
	require.Equal(t, models.StatusValidating, updated.Status)
	stored, _ := sessions.GetByID(ctx, session.ID)
	require.Equal(t, models.StatusValidating, stored.Status)

	require.Equal(t, "fallback for Math / Algebra", content.Summary)
	require.Equal(t, content, contents.saved[session.ID+"/0"])
}

func TestDiscardDeletesEarlySession(t *testing.T) {
	ctx := context.Background()
	c, sessions, _, _, _ := newTestController()

	for _, event := range []Event{"", EventFocusTimerFinished} {
		session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
		require.NoError(t, err)
		if event != "" {
			_, err = c.Advance(ctx, session.ID, event)
			require.NoError(t, err)
		}

		require.NoError(t, c.Discard(ctx, session.ID))

		// No row remains
		_, err = sessions.GetByID(ctx, session.ID)
		require.Error(t, err)
	}
}

func TestDiscardDuringValidatingMarksIncompleteAndResumes(t *testing.T) {
	ctx := context.Background()
	c, sessions, _, _, _ := newTestController()

	session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
	require.NoError(t, err)
	_, err = c.Advance(ctx, session.ID, EventFocusTimerFinished)
	require.NoError(t, err)
	_, _, err = c.SubmitMaterials(ctx, session.ID, []string{"notes"})
	require.NoError(t, err)

	require.NoError(t, c.Discard(ctx, session.ID))
	stored, err := sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusIncomplete, stored.Status)

	// Resume goes straight back into validating
	resumed, err := c.Resume(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusValidating, resumed.Status)
}

func TestDiscardDuringBreakCompletesAndSeeds(t *testing.T) {
	ctx := context.Background()
	c, sessions, reviews, _, _ := newTestController()

	session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
	require.NoError(t, err)
	for _, event := range []Event{EventFocusTimerFinished, EventMaterialsSubmitted, EventValidationFinished} {
		_, err = c.Advance(ctx, session.ID, event)
		require.NoError(t, err)
	}

	// Skipping the break still counts as a completed session
	require.NoError(t, c.Discard(ctx, session.ID))
	stored, _ := sessions.GetByID(ctx, session.ID)
	require.Equal(t, models.StatusCompleted, stored.Status)
	require.Len(t, reviews.entries, 1)
	require.Equal(t, 1, reviews.entries[0].ReviewStage)
}

func TestDiscardCompletedSessionFails(t *testing.T) {
	ctx := context.Background()
	c, _, reviews, _, _ := newTestController()

	session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, true)
	require.NoError(t, err)
	for _, event := range []Event{EventFocusTimerFinished, EventMaterialsSubmitted, EventValidationFinished, EventBreakFinished} {
		_, err = c.Advance(ctx, session.ID, event)
		require.NoError(t, err)
	}
	require.Len(t, reviews.entries, 1)

	var invalid *models.InvalidTransitionError
	require.True(t, errors.As(c.Discard(ctx, session.ID), &invalid))

	// Still only the single seeded entry
	require.Len(t, reviews.entries, 1)
}

func TestExplicitStartStep(t *testing.T) {
	ctx := context.Background()
	c, _, _, _, _ := newTestController()

	session, err := c.CreateSession(ctx, 42, "Math", "Algebra", 25, 5, false)
	require.NoError(t, err)
	require.Equal(t, models.StatusFocusPending, session.Status)

	started, err := c.Advance(ctx, session.ID, EventStartFocus)
	require.NoError(t, err)
	require.Equal(t, models.StatusFocusInProgress, started.Status)
}
