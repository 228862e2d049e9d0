package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/intake/intake/internal/flow"
)

func newTestHandler(t *testing.T) (*Handler, *Service) {
	t.Helper()
	svc, _, _, _ := newTestService(t)
	return NewHandler(svc), svc
}

// call invokes a handler method directly with an optional :id param and JSON
// body, returning the recorder and the handler error.
func call(t *testing.T, fn echo.HandlerFunc, method, target, id, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return rec, fn(c)
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func TestStartSessionEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	rec, err := call(t, h.StartSession, http.MethodPost, "/intake-sessions", "",
		`{"patient_ref":"patient-1"}`)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp startResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Session == nil || resp.Session.Status != StatusActive {
		t.Errorf("unexpected session payload: %+v", resp.Session)
	}
	if resp.Step == nil || resp.Step.Type != flow.ResultQuestion || resp.Step.Question.ID != "age" {
		t.Errorf("unexpected first step: %+v", resp.Step)
	}
}

func TestStartSessionRequiresPatientRef(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := call(t, h.StartSession, http.MethodPost, "/intake-sessions", "", `{}`)
	if httpStatus(t, err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestSubmitResponseEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _, _ := svc.Start(context.Background(), "patient-1")

	rec, err := call(t, h.SubmitResponse, http.MethodPost, "/intake-sessions/x/responses",
		sess.ID.String(), `{"question_id":"age","value":30}`)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var res flow.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Type != flow.ResultQuestion || res.Question.ID != "biological_sex" {
		t.Errorf("expected biological_sex next, got %+v", res)
	}
}

func TestSubmitValidationErrorIsOK(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _, _ := svc.Start(context.Background(), "patient-1")

	rec, err := call(t, h.SubmitResponse, http.MethodPost, "/intake-sessions/x/responses",
		sess.ID.String(), `{"question_id":"age","value":999}`)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var res flow.Result
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.ValidationError == "" || res.Question.ID != "age" {
		t.Errorf("expected a validation message with the same question, got %+v", res)
	}
}

func TestSubmitInvalidSessionID(t *testing.T) {
	h, _ := newTestHandler(t)
	_, err := call(t, h.SubmitResponse, http.MethodPost, "/intake-sessions/x/responses",
		"not-a-uuid", `{"question_id":"age","value":30}`)
	if httpStatus(t, err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestSubmitUnknownQuestionReturns400(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _, _ := svc.Start(context.Background(), "patient-1")

	_, err := call(t, h.SubmitResponse, http.MethodPost, "/intake-sessions/x/responses",
		sess.ID.String(), `{"question_id":"bogus","value":1}`)
	if httpStatus(t, err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestSubmitOutOfOrderReturns409(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _, _ := svc.Start(context.Background(), "patient-1")

	_, err := call(t, h.SubmitResponse, http.MethodPost, "/intake-sessions/x/responses",
		sess.ID.String(), `{"question_id":"pain_severity","value":5}`)
	if httpStatus(t, err) != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	_, err := call(t, h.GetSession, http.MethodGet, "/intake-sessions/x",
		"1b8f9f5e-54f0-4a2e-9e37-0a3f0a61a111", "")
	if httpStatus(t, err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestResultBeforeCompletionReturns409(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _, _ := svc.Start(context.Background(), "patient-1")

	_, err := call(t, h.GetResult, http.MethodGet, "/intake-sessions/x/result", sess.ID.String(), "")
	if httpStatus(t, err) != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestCurrentStepEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _, _ := svc.Start(context.Background(), "patient-1")

	rec, err := call(t, h.CurrentStep, http.MethodGet, "/intake-sessions/x/current", sess.ID.String(), "")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var res flow.Result
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Type != flow.ResultQuestion || res.Question.ID != "age" {
		t.Errorf("expected the pending question, got %+v", res)
	}
}

func TestAbandonEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _, _ := svc.Start(context.Background(), "patient-1")

	rec, err := call(t, h.AbandonSession, http.MethodPost, "/intake-sessions/x/abandon", sess.ID.String(), "")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var got IntakeSession
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusAbandoned {
		t.Errorf("expected abandoned, got %s", got.Status)
	}
}

func TestListSessionsEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	svc.Start(context.Background(), "patient-1")
	svc.Start(context.Background(), "patient-2")

	rec, err := call(t, h.ListSessions, http.MethodGet, "/intake-sessions?status=active", "", "")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp struct {
		Data  []*IntakeSession `json:"data"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Errorf("expected both sessions, got total=%d len=%d", resp.Total, len(resp.Data))
	}
}
