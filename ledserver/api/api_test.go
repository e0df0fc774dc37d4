package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BertoldVdb/ktd2026/ktd2026"
	"github.com/BertoldVdb/ktd2026/ktd2026/simbus"
)

func newTestAPI(t *testing.T) (*API, *simbus.Bus) {
	t.Helper()

	bus := simbus.New(ktd2026.AddressDefault)
	chip := ktd2026.New(bus, 0, nil)
	err := chip.Init(ktd2026.Assignment{
		Red:   ktd2026.LEDParam{Channel: ktd2026.Channel3},
		Green: ktd2026.LEDParam{Channel: ktd2026.Channel1},
		Blue:  ktd2026.LEDParam{Channel: ktd2026.Channel2},
	})
	if err != nil {
		t.Fatal(err)
	}

	return New(chip, "test"), bus
}

func do(s *API, method, target, body string) *httptest.ResponseRecorder {
	var rq *http.Request
	if body == "" {
		rq = httptest.NewRequest(method, target, nil)
	} else {
		rq = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	rw := httptest.NewRecorder()
	s.ServeHTTP(rw, rq)
	return rw
}

func TestInfo(t *testing.T) {
	s, _ := newTestAPI(t)

	rw := do(s, "GET", "/info", "")
	if rw.Code != http.StatusOK {
		t.Fatalf("status %d", rw.Code)
	}

	var info Info
	if err := json.Unmarshal(rw.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info != (Info{Name: "test", Address: 0x30, Red: 3, Green: 1, Blue: 2}) {
		t.Fatalf("info = %+v", info)
	}
}

func TestLED(t *testing.T) {
	s, bus := newTestAPI(t)

	rw := do(s, "POST", "/led", `{"Color":"red","Mode":"on","Brightness":255}`)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("status %d: %s", rw.Code, rw.Body)
	}
	rw = do(s, "POST", "/led", `{"Color":"blue","Mode":"pwm2","Brightness":16}`)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("status %d: %s", rw.Code, rw.Body)
	}

	if got := bus.Register(0x30, 0x04); got != 0x1C {
		t.Fatalf("channel control = %08b, want 00011100", got)
	}
	if got := bus.Register(0x30, 0x08); got != 0xFF {
		t.Fatalf("red brightness = %02x", got)
	}
	if got := bus.Register(0x30, 0x07); got != 0x10 {
		t.Fatalf("blue brightness = %02x", got)
	}
}

func TestSettings(t *testing.T) {
	s, bus := newTestAPI(t)

	for _, c := range []struct {
		path string
		body string
		reg  uint8
		want byte
	}{
		{"/period", `{"Multiplier":7}`, 0x01, 7},
		{"/pwm", `{"Channel":1,"Multiplier":100}`, 0x02, 100},
		{"/pwm", `{"Channel":2,"Multiplier":200}`, 0x03, 200},
		{"/tslot", `{"Mode":2}`, 0x00, 0x02},
		{"/register", `{"Register":5,"Value":66}`, 0x05, 66},
	} {
		rw := do(s, "POST", c.path, c.body)
		if rw.Code != http.StatusNoContent {
			t.Fatalf("%s %s: status %d: %s", c.path, c.body, rw.Code, rw.Body)
		}
		if got := bus.Register(0x30, c.reg); got != c.want {
			t.Fatalf("%s: reg 0x%02x = %d, want %d", c.path, c.reg, got, c.want)
		}
	}
}

func TestBadRequests(t *testing.T) {
	s, bus := newTestAPI(t)

	for _, c := range []struct {
		method string
		path   string
		body   string
		status int
	}{
		{"GET", "/led", "", http.StatusMethodNotAllowed},
		{"POST", "/info", "", http.StatusMethodNotAllowed},
		{"POST", "/led", `{"Color":"white","Mode":"on"}`, http.StatusBadRequest},
		{"POST", "/led", `{"Color":"red","Mode":"blink"}`, http.StatusBadRequest},
		{"POST", "/led", `{"Color":"red","Mode":"on","Brightness":256}`, http.StatusBadRequest},
		{"POST", "/led", `not json`, http.StatusBadRequest},
		{"POST", "/pwm", `{"Channel":3,"Multiplier":1}`, http.StatusBadRequest},
		{"POST", "/tslot", `{"Mode":8}`, http.StatusBadRequest},
		{"POST", "/register", `{"Register":10,"Value":1}`, http.StatusBadRequest},
		{"GET", "/probe?register=0x0a", "", http.StatusBadRequest},
		{"GET", "/probe?register=x", "", http.StatusBadRequest},
	} {
		rw := do(s, c.method, c.path, c.body)
		if rw.Code != c.status {
			t.Fatalf("%s %s %s: status %d, want %d", c.method, c.path, c.body, rw.Code, c.status)
		}
	}

	if tr := bus.Transactions(); len(tr) != 0 {
		t.Fatalf("bad requests reached the bus: %v", tr)
	}
}

func TestBusErrorIsBadGateway(t *testing.T) {
	s, bus := newTestAPI(t)
	bus.FailNext(errors.New("arbitration lost"))

	rw := do(s, "POST", "/period", `{"Multiplier":1}`)
	if rw.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), "arbitration lost") {
		t.Fatalf("body %q", rw.Body)
	}
}

func TestProbe(t *testing.T) {
	s, _ := newTestAPI(t)
	do(s, "POST", "/period", `{"Multiplier":9}`)

	rw := do(s, "GET", "/probe?register=1", "")
	if rw.Code != http.StatusOK {
		t.Fatalf("status %d", rw.Code)
	}

	var resp RegisterResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp != (RegisterResponse{Register: 1, Name: "FlashPeriod", Value: 9}) {
		t.Fatalf("probe = %+v", resp)
	}
}
