package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/BertoldVdb/ktd2026/ktd2026"
)

// Chip is the part of *ktd2026.Chip the API uses.
type Chip interface {
	Address() uint16
	Assignment() ktd2026.Assignment
	LEDOn(led ktd2026.Color, mode ktd2026.Mode, brightness uint8) error
	SetPeriod(multiplier uint8) error
	SetPWMDuty(pwm ktd2026.PWMChannel, multiplier uint8) error
	TimeslotControl(mode ktd2026.TimeSlotMode) error
	WriteRegister(reg ktd2026.Register, value byte) error
	ReadRegister(reg ktd2026.Register) (byte, error)
}

type API struct {
	mux http.ServeMux

	// The chip is not safe for concurrent use.
	chipMutex sync.Mutex
	chip      Chip
	name      string
}

type Info struct {
	Name    string
	Address uint16
	Red     int
	Green   int
	Blue    int
}

type LEDRequest struct {
	Color      string
	Mode       string
	Brightness uint8
}

type PeriodRequest struct {
	Multiplier uint8
}

type PWMRequest struct {
	Channel    int
	Multiplier uint8
}

type TimeslotRequest struct {
	Mode uint8
}

type RegisterRequest struct {
	Register uint8
	Value    uint8
}

type RegisterResponse struct {
	Register uint8
	Name     string
	Value    uint8
}

const ctJSON string = "application/json"

const maxBody = 4096

var errBadRequest = errors.New("bad request")

func New(chip Chip, name string) *API {
	s := &API{
		chip: chip,
		name: name,
	}

	s.mux.HandleFunc("/info", s.infoHandler)
	s.mux.HandleFunc("/led", s.postHandler(s.ledRequest))
	s.mux.HandleFunc("/period", s.postHandler(s.periodRequest))
	s.mux.HandleFunc("/pwm", s.postHandler(s.pwmRequest))
	s.mux.HandleFunc("/tslot", s.postHandler(s.timeslotRequest))
	s.mux.HandleFunc("/register", s.postHandler(s.registerRequest))
	s.mux.HandleFunc("/probe", s.probeHandler)

	return s
}

func sendJSON(w http.ResponseWriter, v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ctJSON)
	w.Write(out)
}

func (s *API) infoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	s.chipMutex.Lock()
	a := s.chip.Assignment()
	info := Info{
		Name:    s.name,
		Address: s.chip.Address(),
		Red:     int(a.Red.Channel) + 1,
		Green:   int(a.Green.Channel) + 1,
		Blue:    int(a.Blue.Channel) + 1,
	}
	s.chipMutex.Unlock()

	sendJSON(w, &info)
}

// postHandler decodes the JSON body and runs f with the chip locked. Errors
// wrapping errBadRequest are the caller's fault, anything else came from the
// chip or the bus.
func (s *API) postHandler(f func(body []byte) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.chipMutex.Lock()
		err = f(body)
		s.chipMutex.Unlock()

		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, errBadRequest) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type badRequest struct {
	err error
}

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return errBadRequest }

func decode(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest{err}
	}
	return nil
}

func (s *API) ledRequest(body []byte) error {
	var req LEDRequest
	if err := decode(body, &req); err != nil {
		return err
	}

	color, err := ktd2026.ParseColor(req.Color)
	if err != nil {
		return badRequest{err}
	}

	mode, err := ktd2026.ParseMode(req.Mode)
	if err != nil {
		return badRequest{err}
	}

	return s.chip.LEDOn(color, mode, req.Brightness)
}

func (s *API) periodRequest(body []byte) error {
	var req PeriodRequest
	if err := decode(body, &req); err != nil {
		return err
	}

	return s.chip.SetPeriod(req.Multiplier)
}

func (s *API) pwmRequest(body []byte) error {
	var req PWMRequest
	if err := decode(body, &req); err != nil {
		return err
	}

	if req.Channel != 1 && req.Channel != 2 {
		return badRequest{errors.New("pwm channel must be 1 or 2")}
	}

	return s.chip.SetPWMDuty(ktd2026.PWMChannel(req.Channel-1), req.Multiplier)
}

func (s *API) timeslotRequest(body []byte) error {
	var req TimeslotRequest
	if err := decode(body, &req); err != nil {
		return err
	}

	if req.Mode > uint8(ktd2026.ResetCompleteChip) {
		return badRequest{errors.New("time slot mode must be 0-7")}
	}

	return s.chip.TimeslotControl(ktd2026.TimeSlotMode(req.Mode))
}

func (s *API) registerRequest(body []byte) error {
	var req RegisterRequest
	if err := decode(body, &req); err != nil {
		return err
	}

	reg, ok := ktd2026.RegisterFromAddr(req.Register)
	if !ok {
		return badRequest{errors.New("unknown register")}
	}

	return s.chip.WriteRegister(reg, req.Value)
}

// probeHandler reads a register from the chip. The chip does not read back
// reliably, so this is only useful for debugging the bus.
func (s *API) probeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	addr, err := strconv.ParseUint(r.URL.Query().Get("register"), 0, 8)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reg, ok := ktd2026.RegisterFromAddr(uint8(addr))
	if !ok {
		http.Error(w, "unknown register", http.StatusBadRequest)
		return
	}

	s.chipMutex.Lock()
	value, err := s.chip.ReadRegister(reg)
	s.chipMutex.Unlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	sendJSON(w, &RegisterResponse{
		Register: reg.Addr(),
		Name:     reg.String(),
		Value:    value,
	})
}

func (s *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
