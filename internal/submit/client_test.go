package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/segnala/internal/report"
)

func sampleReport() report.ProblemReport {
	return report.ProblemReport{
		Date:        "15/10/2026",
		ODL:         "ODL-55",
		Description: "Motore della linea 3 guasto",
		ProblemType: "Meccanico",
		Operator:    "Mario",
	}
}

func TestSubmitPostsReportJSONOnce(t *testing.T) {
	var (
		calls int
		got   map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":"success"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL+"/macros/s/secret/exec", time.Second, nil).Submit(context.Background(), sampleReport())
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, map[string]string{
		"date":        "15/10/2026",
		"odl":         "ODL-55",
		"description": "Motore della linea 3 guasto",
		"problemType": "Meccanico",
		"operator":    "Mario",
	}, got)
}

func TestSubmitIgnoresResponseStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>script error</html>"))
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL, time.Second, nil).Submit(context.Background(), sampleReport()))
}

func TestSubmitNetworkFailureIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL + "/macros/s/secret/exec"
	srv.Close()

	err := NewClient(url, time.Second, nil).Submit(context.Background(), sampleReport())
	var submitErr *Error
	require.ErrorAs(t, err, &submitErr)
	require.NotContains(t, err.Error(), "secret")
}

func TestSubmitTimeoutIsTyped(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	err := NewClient(srv.URL, 50*time.Millisecond, nil).Submit(context.Background(), sampleReport())
	var submitErr *Error
	require.ErrorAs(t, err, &submitErr)
}

func TestSubmitWithoutEndpoint(t *testing.T) {
	err := NewClient(" ", 0, nil).Submit(context.Background(), sampleReport())
	require.True(t, errors.Is(err, ErrNoEndpoint))
}

func TestRedact(t *testing.T) {
	require.Equal(t, "https://script.google.com", redact("https://script.google.com/macros/s/abc/exec"))
	require.Equal(t, "webhook", redact("not a url"))
}
