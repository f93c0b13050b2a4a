package agent_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/agent"
	"github.com/noah-isme/backend-dairy/internal/store"
	"github.com/noah-isme/backend-dairy/internal/store/storetest"
)

func ask(h *agent.Handler, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.Ask(rr, httptest.NewRequest(http.MethodPost, "/api/v1/agent/ask", strings.NewReader(body)))
	return rr
}

func TestAskHandler(t *testing.T) {
	h := &agent.Handler{Svc: &agent.Service{Figures: figures(), LLM: &fakeCompleter{reply: "ok"}, Logger: zerolog.Nop()}}

	rr := ask(h, `{"question":"How much milk?"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"answer":"ok"`)

	rr = ask(h, `{"question":""}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "VALIDATION_ERROR")

	rr = ask(h, `not json`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAskHandlerErrors(t *testing.T) {
	rr := ask(&agent.Handler{}, `{"question":"hi"}`)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), "AGENT_UNAVAILABLE")

	dash := figures()
	dash.Store.(*storetest.Memory).Err = store.ErrUnavailable
	rr = ask(&agent.Handler{Svc: &agent.Service{Figures: dash, LLM: &fakeCompleter{}}}, `{"question":"hi"}`)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), "STORE_UNAVAILABLE")
}
