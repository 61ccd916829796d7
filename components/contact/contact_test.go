package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/neurion/internal/component"
	"github.com/yanizio/neurion/internal/form"
	"github.com/yanizio/neurion/internal/session"
	"github.com/yanizio/neurion/internal/store"
	"github.com/yanizio/neurion/internal/submission"
)

type memStore struct {
	mu        sync.Mutex
	pingErr   error
	insertErr error
	rows      []store.NewRecord
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) Insert(_ context.Context, rec store.NewRecord) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.rows = append(m.rows, rec)
	return &store.Record{ID: "6f1c", CreatedAt: time.Now(), NewRecord: rec}, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type harness struct {
	h     http.Handler
	st    *memStore
	token string
}

func newHarness(t *testing.T, st *memStore) *harness {
	t.Helper()
	client := submission.New(st)
	mgr := session.NewManager(client, session.ManagerOptions{EvictInterval: time.Hour})
	t.Cleanup(mgr.Close)

	csrf := form.NewCSRF([]byte(strings.Repeat("k", 32)), time.Hour)
	c := &Component{}
	require.NoError(t, c.Init(component.Services{
		Sessions: mgr,
		Client:   client,
		CSRF:     csrf,
		Logger:   zap.NewNop().Sugar(),
	}))

	r := chi.NewRouter()
	r.Mount(component.Prefix(c), c.Routes())

	tok, err := csrf.Generate()
	require.NoError(t, err)
	return &harness{h: r, st: st, token: tok}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(CSRFHeader, h.token)
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

func (h *harness) open(t *testing.T) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/contact/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		ID   string `json:"id"`
		View struct {
			State string `json:"state"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "idle", resp.View.State)
	return resp.ID
}

func validForm() map[form.Field]string {
	return map[form.Field]string{
		form.FieldFirstName:      "Ada",
		form.FieldLastName:       "Lovelace",
		form.FieldEmail:          "Ada@Example.com",
		form.FieldCompanyName:    "Engines Ltd",
		form.FieldProjectDetails: "Automate our analytical engine intake.",
	}
}

type outcomeBody struct {
	Outcome struct {
		Success bool   `json:"success"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"outcome"`
	View *struct {
		State  string            `json:"state"`
		Errors map[string]string `json:"errors"`
		Status struct {
			Type string `json:"type"`
		} `json:"status"`
		Snapshot form.Snapshot `json:"snapshot"`
	} `json:"view"`
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) outcomeBody {
	t.Helper()
	var out outcomeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

/*────────────────────────────── Tests ──────────────────────────────────────*/

func TestOptions(t *testing.T) {
	h := newHarness(t, &memStore{})
	rec := h.do(t, http.MethodGet, "/api/contact/options", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string][]form.Option
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, form.ServiceOptions, got["service_interest"])
	assert.Equal(t, form.BudgetOptions, got["budget"])
}

func TestCSRFRequired(t *testing.T) {
	h := newHarness(t, &memStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/contact/sessions", nil)
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/contact/sessions", nil)
	req.Header.Set(CSRFHeader, "bogus")
	rec = httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/contact/token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tok map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.NotEmpty(t, tok["token"])
}

func TestSessionFlow_Success(t *testing.T) {
	st := &memStore{}
	h := newHarness(t, st)
	id := h.open(t)
	base := "/api/contact/sessions/" + id

	for f, v := range validForm() {
		rec := h.do(t, http.MethodPut, base+"/fields/"+string(f), editRequest{Value: v})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := h.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeOutcome(t, rec)
	assert.True(t, out.Outcome.Success)
	assert.Equal(t, submission.MsgSuccess, out.Outcome.Message)
	require.NotNil(t, out.View)
	assert.Equal(t, "result", out.View.State)
	assert.Equal(t, "success", out.View.Status.Type)
	assert.True(t, out.View.Snapshot.IsEmpty())

	require.Equal(t, 1, st.count())
	assert.Equal(t, "ada@example.com", st.rows[0].Email)
	assert.Nil(t, st.rows[0].Phone)
}

func TestSessionFlow_InvalidKeepsInput(t *testing.T) {
	st := &memStore{}
	h := newHarness(t, st)
	id := h.open(t)
	base := "/api/contact/sessions/" + id

	rec := h.do(t, http.MethodPut, base+"/fields/email", editRequest{Value: "not-an-email"})
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeOutcome(t, h.do(t, http.MethodPost, base+"/submit", nil))
	assert.False(t, out.Outcome.Success)
	assert.Equal(t, "invalid", out.Outcome.Kind)
	require.NotNil(t, out.View)
	assert.Contains(t, out.View.Errors, "email")
	assert.Contains(t, out.View.Errors, "first_name")
	assert.Equal(t, "not-an-email", out.View.Snapshot.Email)
	assert.Zero(t, st.count())

	rec = h.do(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"idle"`)
}

func TestSessionFlow_Offline(t *testing.T) {
	st := &memStore{pingErr: errors.New("dial tcp: refused")}
	h := newHarness(t, st)
	id := h.open(t)
	base := "/api/contact/sessions/" + id
	for f, v := range validForm() {
		h.do(t, http.MethodPut, base+"/fields/"+string(f), editRequest{Value: v})
	}

	out := decodeOutcome(t, h.do(t, http.MethodPost, base+"/submit", nil))
	assert.Equal(t, "offline", out.Outcome.Kind)
	assert.Equal(t, submission.MsgOffline, out.Outcome.Message)
	assert.Equal(t, "Ada", out.View.Snapshot.FirstName)
	assert.Zero(t, st.count())
}

func TestSessionErrors(t *testing.T) {
	h := newHarness(t, &memStore{})
	id := h.open(t)

	rec := h.do(t, http.MethodPut, "/api/contact/sessions/"+id+"/fields/nickname", editRequest{Value: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/contact/sessions/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/contact/sessions/"+id+"/fields/email", strings.NewReader("{"))
	req.Header.Set(CSRFHeader, h.token)
	rec = httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"value":"` + strings.Repeat("a", maxBody) + `"}`
	req = httptest.NewRequest(http.MethodPut, "/api/contact/sessions/"+id+"/fields/email", strings.NewReader(big))
	req.Header.Set(CSRFHeader, h.token)
	rec = httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/contact/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodGet, "/api/contact/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCurrentSessionCookie(t *testing.T) {
	h := newHarness(t, &memStore{})

	rec := h.do(t, http.MethodPost, "/api/contact/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, session.CookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/api/contact/sessions/current", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), cookies[0].Value)

	req = httptest.NewRequest(http.MethodGet, "/api/contact/sessions/current", nil)
	rec = httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOneShot(t *testing.T) {
	body := func(mut func(*form.Snapshot)) form.Snapshot {
		s := form.Snapshot{}
		for f, v := range validForm() {
			require.NoError(t, s.Set(f, v))
		}
		if mut != nil {
			mut(&s)
		}
		return s
	}

	cases := []struct {
		name   string
		st     *memStore
		snap   form.Snapshot
		status int
		kind   string
		rows   int
	}{
		{"success", &memStore{}, body(nil), http.StatusCreated, "success", 1},
		{"invalid", &memStore{}, body(func(s *form.Snapshot) { s.ProjectDetails = "short" }), http.StatusUnprocessableEntity, "invalid", 0},
		{"duplicate", &memStore{insertErr: &store.Error{Code: store.CodeUniqueViolation}}, body(nil), http.StatusConflict, "duplicate", 0},
		{"offline", &memStore{pingErr: errors.New("timeout")}, body(nil), http.StatusServiceUnavailable, "offline", 0},
		{"permission", &memStore{insertErr: &store.Error{Code: store.CodePermissionDenied}}, body(nil), http.StatusForbidden, "permission", 0},
		{"other", &memStore{insertErr: &store.Error{Code: "XX000", Message: "boom"}}, body(nil), http.StatusInternalServerError, "error", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.st)
			rec := h.do(t, http.MethodPost, "/api/contact", tc.snap)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			out := decodeOutcome(t, rec)
			assert.Equal(t, tc.kind, out.Outcome.Kind)
			assert.Equal(t, tc.rows, tc.st.count())
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestOneShotSanitizes(t *testing.T) {
	st := &memStore{}
	h := newHarness(t, st)
	snap := form.Snapshot{
		FirstName:      "<script>x()</script>Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		CompanyName:    "<b>Engines</b>",
		ProjectDetails: "Automate our analytical engine intake.",
	}
	rec := h.do(t, http.MethodPost, "/api/contact", snap)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, 1, st.count())
	assert.Equal(t, "Ada", st.rows[0].FirstName)
	assert.Equal(t, "bEngines/b", st.rows[0].CompanyName)
}

func TestStream(t *testing.T) {
	h := newHarness(t, &memStore{})
	id := h.open(t)

	srv := httptest.NewServer(h.h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/contact/sessions/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	rec := h.do(t, http.MethodPut, "/api/contact/sessions/"+id+"/fields/first_name", editRequest{Value: "Jo"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var v struct {
			State    string        `json:"state"`
			Snapshot form.Snapshot `json:"snapshot"`
		}
		require.NoError(t, conn.ReadJSON(&v))
		if v.Snapshot.FirstName == "Jo" {
			assert.Equal(t, "editing", v.State)
			break
		}
	}

	// Deleting the session closes the stream.
	rec = h.do(t, http.MethodDelete, "/api/contact/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
			break
		}
	}
}

func TestStreamUnknownSession(t *testing.T) {
	h := newHarness(t, &memStore{})
	srv := httptest.NewServer(h.h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/contact/sessions/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInitRequiresServices(t *testing.T) {
	assert.Error(t, (&Component{}).Init(component.Services{}))
	assert.Equal(t, "contact", (&Component{}).Name())
}
