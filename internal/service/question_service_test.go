package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuestionService(t *testing.T, handler http.HandlerFunc) (*QuestionService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewQuestionService(server.URL, "test-token", 2*time.Second)
	require.NoError(t, err)
	return svc, server
}

func TestNewQuestionService_RequiresConfig(t *testing.T) {
	_, err := NewQuestionService("", "token", time.Second)
	assert.Error(t, err)

	_, err = NewQuestionService("https://example.com", "", time.Second)
	assert.Error(t, err)
}

func TestGetSubjects_SendsAccessToken(t *testing.T) {
	var gotToken, gotPath string
	svc, _ := newTestQuestionService(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("AccessToken")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"ok","status":200,"subjects":{"chemistry":"Chemistry"}}`))
	})

	resp, err := svc.GetSubjects(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "test-token", gotToken, "Токен доступа уходит в заголовке AccessToken")
	assert.Equal(t, "/q-subjects", gotPath)
	assert.Equal(t, "Chemistry", resp.Subjects["chemistry"])
}

func TestGetQuestionBatch_BuildsEndpoint(t *testing.T) {
	var gotPath, gotQuery string
	svc, _ := newTestQuestionService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subject":"chemistry","status":200,"data":[{"id":1,"question":"?","answer":"a"}]}`))
	})

	resp, err := svc.GetQuestionBatch(context.Background(), "chemistry", "2019", 20)

	require.NoError(t, err)
	assert.Equal(t, "/m/20", gotPath)
	assert.Contains(t, gotQuery, "subject=chemistry")
	assert.Contains(t, gotQuery, "year=2019")
	assert.Contains(t, gotQuery, "random=false")
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Data[0].ID)
}

func TestGetQuestions_UpstreamError(t *testing.T) {
	svc, _ := newTestQuestionService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	questions, err := svc.GetQuestions(context.Background(), "chemistry", "utme", 2019)

	assert.Error(t, err)
	assert.Nil(t, questions)
}

func TestReportQuestion_PostsForm(t *testing.T) {
	var gotMethod, gotContentType, gotSubject, gotQuestionID string
	svc, _ := newTestQuestionService(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotSubject = r.PostFormValue("subject")
		gotQuestionID = r.PostFormValue("question_id")
		w.WriteHeader(http.StatusOK)
	})

	err := svc.ReportQuestion(context.Background(), "chemistry", 42, "wrong answer key")

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "chemistry", gotSubject)
	assert.Equal(t, "42", gotQuestionID)
}
