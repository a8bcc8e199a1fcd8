package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/signup/internal/domain"
	"example.com/signup/internal/roster"
	"example.com/signup/internal/web"
)

// newTestMux starts every test from the seed roster.
func newTestMux(t *testing.T) http.Handler {
	t.Helper()
	service := domain.NewService(roster.NewDefaultRepository())
	return NewHandler(service, web.Static(), nil).Routes()
}

// rosterURL escapes the activity path segment and passes rawEmail through untouched,
// the way a client builds the query string by hand.
func rosterURL(activity, action, rawEmail string) string {
	return "/activities/" + url.PathEscape(activity) + "/" + action + "?email=" + rawEmail
}

func do(t *testing.T, mux http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func listActivities(t *testing.T, mux http.Handler) ActivitiesResponse {
	t.Helper()
	rr := do(t, mux, http.MethodGet, "/activities")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ActivitiesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Message
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestRootRedirectsToLandingPage(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodGet, "/")
	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307 got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/static/index.html" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestLandingPageServed(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodGet, "/static/index.html")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Mergington High School")

	rr = do(t, mux, http.MethodGet, "/static/app.js")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthz(t *testing.T) {
	rr := do(t, newTestMux(t), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestGetActivities(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodGet, "/activities")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var raw map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	require.NotEmpty(t, raw)
	for name, fields := range raw {
		for _, key := range []string{"description", "schedule", "max_participants", "participants"} {
			require.Containsf(t, fields, key, "activity %s missing %s", name, key)
		}
	}

	chess, ok := listActivities(t, mux)["Chess Club"]
	require.True(t, ok)
	require.Equal(t, "Learn strategies and compete in chess tournaments", chess.Description)
	require.Equal(t, "Fridays, 3:30 PM - 5:00 PM", chess.Schedule)
	require.Equal(t, 12, chess.MaxParticipants)
}

func TestSignupSuccess(t *testing.T) {
	mux := newTestMux(t)
	email := "newstudent@mergington.edu"

	rr := do(t, mux, http.MethodPost, rosterURL("Chess Club", "signup", email))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Signed up newstudent@mergington.edu for Chess Club", decodeMessage(t, rr))

	participants := listActivities(t, mux)["Chess Club"].Participants
	require.Equal(t, email, participants[len(participants)-1])
}

func TestSignupUnknownActivity(t *testing.T) {
	mux := newTestMux(t)
	before := listActivities(t, mux)

	rr := do(t, mux, http.MethodPost, rosterURL("Nonexistent Club", "signup", "student@mergington.edu"))
	require.Equal(t, http.StatusNotFound, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, "Activity not found", body.Detail)
	require.Equal(t, "not_found", body.Type)

	require.Equal(t, before, listActivities(t, mux))
}

func TestSignupAlreadyRegistered(t *testing.T) {
	mux := newTestMux(t)
	before := listActivities(t, mux)["Chess Club"].Participants

	rr := do(t, mux, http.MethodPost, rosterURL("Chess Club", "signup", "michael@mergington.edu"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, "Student already signed up for this activity", body.Detail)
	require.Equal(t, "conflict", body.Type)

	require.Equal(t, before, listActivities(t, mux)["Chess Club"].Participants)
}

func TestSignupActivityNameWithSpace(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodPost, rosterURL("Art Workshop", "signup", "student@mergington.edu"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Signed up student@mergington.edu for Art Workshop", decodeMessage(t, rr))
}

func TestSignupPlusInEmailDecodesToSpace(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodPost, rosterURL("Chess Club", "signup", "test+tag@mergington.edu"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Signed up test tag@mergington.edu for Chess Club", decodeMessage(t, rr))
	require.Contains(t, listActivities(t, mux)["Chess Club"].Participants, "test tag@mergington.edu")
}

func TestSignupEncodedPlusIsKept(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodPost, rosterURL("Chess Club", "signup", url.QueryEscape("test+tag@mergington.edu")))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Signed up test+tag@mergington.edu for Chess Club", decodeMessage(t, rr))
}

func TestSignupKeepsSemicolonInEmail(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodPost, rosterURL("Chess Club", "signup", "a;b@mergington.edu"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Signed up a;b@mergington.edu for Chess Club", decodeMessage(t, rr))
	require.Contains(t, listActivities(t, mux)["Chess Club"].Participants, "a;b@mergington.edu")
}

func TestSignupKeepsMalformedEscape(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodPost, rosterURL("Chess Club", "signup", "a%ZZ@mergington.edu"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Signed up a%ZZ@mergington.edu for Chess Club", decodeMessage(t, rr))

	rr = do(t, mux, http.MethodDelete, rosterURL("Chess Club", "unregister", "a%ZZ@mergington.edu"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Unregistered a%ZZ@mergington.edu from Chess Club", decodeMessage(t, rr))
}

func TestSignupRequiresEmail(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodPost, "/activities/Chess%20Club/signup")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "validation_failed", decodeError(t, rr).Type)
}

func TestUnregisterSuccess(t *testing.T) {
	mux := newTestMux(t)
	before := listActivities(t, mux)["Chess Club"].Participants

	rr := do(t, mux, http.MethodDelete, rosterURL("Chess Club", "unregister", "michael@mergington.edu"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Unregistered michael@mergington.edu from Chess Club", decodeMessage(t, rr))

	after := listActivities(t, mux)["Chess Club"].Participants
	require.NotContains(t, after, "michael@mergington.edu")
	require.Len(t, after, len(before)-1)
}

func TestUnregisterUnknownActivity(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodDelete, rosterURL("Nonexistent Club", "unregister", "student@mergington.edu"))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "Activity not found", decodeError(t, rr).Detail)
}

func TestUnregisterNotRegistered(t *testing.T) {
	mux := newTestMux(t)
	before := listActivities(t, mux)

	rr := do(t, mux, http.MethodDelete, rosterURL("Chess Club", "unregister", "notregistered@mergington.edu"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Student is not registered for this activity", decodeError(t, rr).Detail)

	require.Equal(t, before, listActivities(t, mux))
}

func TestUnregisterPlusInEmail(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodPost, rosterURL("Art Workshop", "signup", "test+tag@mergington.edu"))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, mux, http.MethodDelete, rosterURL("Art Workshop", "unregister", "test+tag@mergington.edu"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Unregistered test tag@mergington.edu from Art Workshop", decodeMessage(t, rr))
}

func TestWrongMethodRejected(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodGet, rosterURL("Chess Club", "signup", "student@mergington.edu"))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.True(t, strings.Contains(rr.Header().Get("Allow"), http.MethodPost))
}

func TestFullSignupUnregisterCycle(t *testing.T) {
	mux := newTestMux(t)
	email := "integration@mergington.edu"
	initial := listActivities(t, mux)["Programming Class"].Participants
	require.NotContains(t, initial, email)

	rr := do(t, mux, http.MethodPost, rosterURL("Programming Class", "signup", email))
	require.Equal(t, http.StatusOK, rr.Code)
	afterSignup := listActivities(t, mux)["Programming Class"].Participants
	require.Contains(t, afterSignup, email)
	require.Len(t, afterSignup, len(initial)+1)

	rr = do(t, mux, http.MethodDelete, rosterURL("Programming Class", "unregister", email))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, initial, listActivities(t, mux)["Programming Class"].Participants)
}

func TestMultipleStudentsSameActivity(t *testing.T) {
	mux := newTestMux(t)
	emails := []string{"student1@mergington.edu", "student2@mergington.edu", "student3@mergington.edu"}

	for _, email := range emails {
		rr := do(t, mux, http.MethodPost, rosterURL("Science Club", "signup", email))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	participants := listActivities(t, mux)["Science Club"].Participants
	require.Equal(t, emails, participants[len(participants)-len(emails):])
}

func TestStudentMultipleActivities(t *testing.T) {
	mux := newTestMux(t)
	email := "multisport@mergington.edu"
	activities := []string{"Basketball Club", "Soccer Team", "Chess Club"}

	for _, activity := range activities {
		rr := do(t, mux, http.MethodPost, rosterURL(activity, "signup", email))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	listed := listActivities(t, mux)
	for _, activity := range activities {
		require.Contains(t, listed[activity].Participants, email)
	}
}

func TestEachTestStartsFromSeed(t *testing.T) {
	first := newTestMux(t)
	rr := do(t, first, http.MethodDelete, rosterURL("Chess Club", "unregister", "michael@mergington.edu"))
	require.Equal(t, http.StatusOK, rr.Code)

	second := newTestMux(t)
	require.Contains(t, listActivities(t, second)["Chess Club"].Participants, "michael@mergington.edu")
}
