package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func authStatus(t *testing.T, handler http.HandlerFunc, user, pass string, withAuth bool) int {
	t.Helper()

	rq := httptest.NewRequest(http.MethodGet, "/0/info", nil)
	if withAuth {
		rq.SetBasicAuth(user, pass)
	}

	rw := httptest.NewRecorder()
	handler(rw, rq)
	return rw.Code
}

func TestAuthProcess(t *testing.T) {
	ok := func(rw http.ResponseWriter, rq *http.Request) {
		rw.WriteHeader(http.StatusNoContent)
	}

	handler := authProcess(ok, "secret")

	user, pass := authCalculate("secret", "test", time.Now().Add(time.Hour))
	if code := authStatus(t, handler, user, pass, true); code != http.StatusNoContent {
		t.Fatalf("valid credentials: status %d", code)
	}

	if code := authStatus(t, handler, "", "", false); code != http.StatusUnauthorized {
		t.Fatalf("no credentials: status %d", code)
	}

	_, other := authCalculate("other", "test", time.Now().Add(time.Hour))
	if code := authStatus(t, handler, user, other, true); code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status %d", code)
	}

	if code := authStatus(t, handler, user, "zz", true); code != http.StatusUnauthorized {
		t.Fatalf("non hex password: status %d", code)
	}

	user, pass = authCalculate("secret", "", time.Now().Add(-time.Hour))
	if code := authStatus(t, handler, user, pass, true); code != http.StatusUnauthorized {
		t.Fatalf("expired credentials: status %d", code)
	}
}

func TestAuthDisabled(t *testing.T) {
	ok := func(rw http.ResponseWriter, rq *http.Request) {
		rw.WriteHeader(http.StatusNoContent)
	}

	if code := authStatus(t, authProcess(ok, ""), "", "", false); code != http.StatusNoContent {
		t.Fatalf("status %d", code)
	}
}

func TestParseChannel(t *testing.T) {
	p, err := parseChannel("red", 3)
	if err != nil || p.Channel != 2 {
		t.Fatalf("parseChannel = %v, %v", p, err)
	}

	for _, v := range []int{0, 5, -1} {
		if _, err := parseChannel("red", v); err == nil {
			t.Fatalf("channel %d accepted", v)
		}
	}
}

func TestListenPort(t *testing.T) {
	port, err := listenPort(":8067")
	if err != nil || port != 8067 {
		t.Fatalf("listenPort = %d, %v", port, err)
	}

	if _, err := listenPort("8067"); err == nil {
		t.Fatal("address without port separator accepted")
	}
}
