package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contest_hub/internal/app/service"
	"contest_hub/internal/common"
	"contest_hub/internal/common/security"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/repository/memory"
	"contest_hub/internal/platform/gateway"
)

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	security.InitJWT([]byte("router-test-secret"), time.Hour)

	store := memory.NewStore()
	gw := gateway.NewSandbox("http://app/success?session_id="+gateway.SessionIDPlaceholder, true)
	contests := service.NewContestService(store.Contests())
	svc := Services{
		Auth:        service.NewAuthService(store.Users(), []string{"admin@example.com"}),
		Contests:    contests,
		Settlement:  service.NewSettlementService(store.Contests(), store.Payments(), gw, nil, "usd"),
		Submissions: service.NewSubmissionService(store.Contests(), store.Submissions(), store.Payments()),
		Winners:     service.NewWinnerService(contests, store.Contests(), store.Submissions()),
		Reconcile:   service.NewReconcileService(store.Contests(), store.Submissions()),
	}
	srv := httptest.NewServer(NewRouter(svc, 5*time.Second))
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

// do sends body as JSON and decodes the response into out when out is non-nil.
func (s *testServer) do(method, path, token string, body, out interface{}) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *testServer) signup(email string) string {
	s.t.Helper()
	var resp service.AuthResponse
	code := s.do(http.MethodPost, "/auth/signup", "", service.SignupRequest{Name: email, Email: email, Password: "secret1"}, &resp)
	if code != http.StatusCreated {
		s.t.Fatalf("signup %s: status %d", email, code)
	}
	return resp.Token
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	var resp service.AuthResponse
	if code := s.do(http.MethodPost, "/auth/login", "", service.LoginRequest{Email: email, Password: "secret1"}, &resp); code != http.StatusOK {
		s.t.Fatalf("login %s: status %d", email, code)
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	var errResp common.ErrorResponse
	if code := s.do(http.MethodPost, "/contests", "", map[string]string{}, &errResp); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if errResp.Code != "unauthenticated" {
		t.Fatalf("code = %q", errResp.Code)
	}

	userToken := s.signup("plain@example.com")
	if code := s.do(http.MethodPost, "/contests", userToken, map[string]string{}, &errResp); code != http.StatusForbidden {
		t.Fatalf("expected 403 for plain user, got %d", code)
	}
	if code := s.do(http.MethodPost, "/admin/reconcile", userToken, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 on admin route, got %d", code)
	}
}

func TestContestFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	adminToken := s.signup("admin@example.com")
	s.signup("creator@example.com")
	var promoted model.User
	if code := s.do(http.MethodPatch, "/users/creator@example.com/role", adminToken,
		map[string]string{"role": model.RoleCreator}, &promoted); code != http.StatusOK {
		t.Fatalf("promote creator: status %d", code)
	}
	creatorToken := s.login("creator@example.com")
	aToken := s.signup("a@example.com")
	bToken := s.signup("b@example.com")

	var contest model.Contest
	code := s.do(http.MethodPost, "/contests", creatorToken, map[string]interface{}{
		"title":       "Poster Jam",
		"description": "Make a poster",
		"type":        "design",
		"prize_money": "250",
		"entry_fee":   "10",
		"deadline":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}, &contest)
	if code != http.StatusCreated || contest.Status != model.ContestPending {
		t.Fatalf("create: status %d contest %+v", code, contest)
	}

	var errResp common.ErrorResponse
	if code := s.do(http.MethodPost, "/create-checkout-session", aToken,
		service.CheckoutRequest{ContestID: contest.ID}, &errResp); code != http.StatusConflict {
		t.Fatalf("checkout on pending contest: expected 409, got %d", code)
	}

	if code := s.do(http.MethodPatch, "/contests/"+contest.ID, adminToken,
		map[string]string{"status": "confirmed"}, &contest); code != http.StatusOK || contest.Status != model.ContestConfirmed {
		t.Fatalf("confirm: status %d contest %+v", code, contest)
	}
	if code := s.do(http.MethodPatch, "/contests/"+contest.ID, adminToken,
		map[string]string{"status": "rejected"}, &errResp); code != http.StatusConflict || errResp.Code != "conflict" {
		t.Fatalf("second transition: expected 409 conflict, got %d %+v", code, errResp)
	}

	for _, token := range []string{aToken, bToken} {
		var checkout gateway.Checkout
		if code := s.do(http.MethodPost, "/create-checkout-session", token,
			service.CheckoutRequest{ContestID: contest.ID}, &checkout); code != http.StatusOK {
			t.Fatalf("checkout: status %d", code)
		}
		var first, second service.VerifyResult
		if code := s.do(http.MethodPost, "/verify-payment", "", service.VerifyRequest{SessionID: checkout.SessionID}, &first); code != http.StatusOK {
			t.Fatalf("verify: status %d", code)
		}
		if code := s.do(http.MethodPost, "/verify-payment?session_id="+checkout.SessionID, "", nil, &second); code != http.StatusOK {
			t.Fatalf("verify retry: status %d", code)
		}
		if first.AlreadyRegistered || !second.AlreadyRegistered {
			t.Fatalf("verify results first=%+v second=%+v", first, second)
		}
	}

	if code := s.do(http.MethodGet, "/contests/"+contest.ID, "", nil, &contest); code != http.StatusOK || contest.Participants != 2 {
		t.Fatalf("participants: status %d contest %+v", code, contest)
	}

	var participated []model.Contest
	if code := s.do(http.MethodGet, "/participated-contests/a@example.com", aToken, nil, &participated); code != http.StatusOK || len(participated) != 1 {
		t.Fatalf("participated: status %d, %d contests", code, len(participated))
	}
	if code := s.do(http.MethodGet, "/participated-contests/a@example.com", bToken, nil, &errResp); code != http.StatusForbidden {
		t.Fatalf("participated for someone else: expected 403, got %d", code)
	}

	var sub model.Submission
	if code := s.do(http.MethodPost, "/submissions/"+contest.ID, aToken,
		service.SubmitRequest{SubmissionLink: "http://a"}, &sub); code != http.StatusCreated {
		t.Fatalf("submit: status %d", code)
	}
	if code := s.do(http.MethodPost, "/submissions/"+contest.ID, aToken,
		service.SubmitRequest{SubmissionLink: "http://a2"}, &errResp); code != http.StatusConflict || errResp.Code != "duplicate_submission" {
		t.Fatalf("duplicate submit: %d %+v", code, errResp)
	}

	var subs []model.Submission
	if code := s.do(http.MethodGet, "/submissions/contest/"+contest.ID, creatorToken, nil, &subs); code != http.StatusOK || len(subs) != 1 {
		t.Fatalf("list submissions: status %d, %d items", code, len(subs))
	}

	if code := s.do(http.MethodPost, "/contests/"+contest.ID+"/declare-winner", bToken,
		service.DeclareWinnerRequest{SubmissionID: sub.ID}, &errResp); code != http.StatusForbidden {
		t.Fatalf("declare by participant: expected 403, got %d", code)
	}
	if code := s.do(http.MethodPost, "/contests/"+contest.ID+"/declare-winner", adminToken,
		service.DeclareWinnerRequest{SubmissionID: sub.ID}, &contest); code != http.StatusOK {
		t.Fatalf("declare: status %d", code)
	}
	if contest.Status != model.ContestEnded || contest.WinnerEmail == nil || *contest.WinnerEmail != "a@example.com" {
		t.Fatalf("ended contest %+v", contest)
	}

	var report service.ReconcileReport
	if code := s.do(http.MethodPost, "/admin/reconcile/"+contest.ID, adminToken, nil, &report); code != http.StatusOK || report.Repaired() {
		t.Fatalf("reconcile: status %d report %+v", code, report)
	}
}

func TestEditAndDeleteContestOverHTTP(t *testing.T) {
	s := newTestServer(t)

	adminToken := s.signup("admin@example.com")
	s.signup("creator@example.com")
	if code := s.do(http.MethodPatch, "/users/creator@example.com/role", adminToken,
		map[string]string{"role": model.RoleCreator}, nil); code != http.StatusOK {
		t.Fatalf("promote creator: status %d", code)
	}
	creatorToken := s.login("creator@example.com")
	userToken := s.signup("a@example.com")

	var contest model.Contest
	code := s.do(http.MethodPost, "/contests", creatorToken, map[string]interface{}{
		"title":       "Poster Jam",
		"description": "Make a poster",
		"type":        "design",
		"prize_money": "250",
		"entry_fee":   "10",
		"deadline":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}, &contest)
	if code != http.StatusCreated {
		t.Fatalf("create: status %d", code)
	}

	var edited model.Contest
	if code := s.do(http.MethodPatch, "/contests/edit/"+contest.ID, creatorToken,
		map[string]string{"title": "Poster Jam Two"}, &edited); code != http.StatusOK {
		t.Fatalf("edit: status %d", code)
	}
	if edited.Title != "Poster Jam Two" || edited.Slug != "poster-jam-two" || edited.Status != model.ContestPending {
		t.Fatalf("unexpected contest after edit %+v", edited)
	}
	if code := s.do(http.MethodPatch, "/contests/edit/"+contest.ID, userToken,
		map[string]string{"title": "Hijack"}, nil); code != http.StatusForbidden {
		t.Fatalf("edit by plain user: expected 403, got %d", code)
	}
	if code := s.do(http.MethodPatch, "/contests/edit/missing", creatorToken,
		map[string]string{"title": "Ghost"}, nil); code != http.StatusNotFound {
		t.Fatalf("edit of missing contest: expected 404, got %d", code)
	}
	if code := s.do(http.MethodDelete, "/contests/"+contest.ID, userToken, nil, nil); code != http.StatusForbidden {
		t.Fatalf("delete by plain user: expected 403, got %d", code)
	}

	if code := s.do(http.MethodPatch, "/contests/"+contest.ID, adminToken,
		map[string]string{"status": "confirmed"}, nil); code != http.StatusOK {
		t.Fatalf("confirm: status %d", code)
	}
	var errResp common.ErrorResponse
	if code := s.do(http.MethodPatch, "/contests/edit/"+contest.ID, creatorToken,
		map[string]string{"title": "Too Late"}, &errResp); code != http.StatusConflict || errResp.Code != "conflict" {
		t.Fatalf("edit after confirm: expected 409 conflict, got %d %+v", code, errResp)
	}
	if code := s.do(http.MethodDelete, "/contests/"+contest.ID, creatorToken, nil, nil); code != http.StatusNotFound {
		t.Fatalf("creator delete after confirm: expected 404, got %d", code)
	}
	if code := s.do(http.MethodDelete, "/contests/"+contest.ID, adminToken, nil, nil); code != http.StatusOK {
		t.Fatalf("admin delete: status %d", code)
	}
	if code := s.do(http.MethodGet, "/contests/"+contest.ID, "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", code)
	}
}

func TestVerifyPaymentUnknownSession(t *testing.T) {
	s := newTestServer(t)
	var errResp common.ErrorResponse
	code := s.do(http.MethodPost, "/verify-payment", "", service.VerifyRequest{SessionID: "cs_missing"}, &errResp)
	if code != http.StatusBadGateway || errResp.Code != "gateway_error" {
		t.Fatalf("expected 502 gateway_error, got %d %+v", code, errResp)
	}
}
