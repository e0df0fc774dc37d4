package ledclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BertoldVdb/ktd2026/ktd2026"
	"github.com/BertoldVdb/ktd2026/ledserver/api"
	"github.com/BertoldVdb/ktd2026/ledserver/discovery"
)

// LEDClient controls a chip exported by ledserver.
type LEDClient struct {
	client http.Client
	url    string

	user string
	pass string

	info api.Info
}

// New connects to baseURL, which is the chip prefix on the server, for example
// http://host:8067/0. user and pass are only sent when user is not empty.
func New(baseURL string, user string, pass string) (*LEDClient, error) {
	c := &LEDClient{
		client: http.Client{
			Timeout: 10 * time.Second,
		},

		url:  strings.TrimSuffix(baseURL, "/"),
		user: user,
		pass: pass,
	}

	infoRaw, err := c.doReq("info", nil)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(infoRaw, &c.info); err != nil {
		return nil, err
	}

	return c, nil
}

// Discover finds a server called name (any server if name is empty) with
// mDNS and connects to chip index on it.
func Discover(ctx context.Context, name string, index int, user string, pass string) (*LEDClient, error) {
	result, err := discovery.Discover(ctx, name, 5*time.Second)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= result.Chips {
		return nil, fmt.Errorf("server %s has no chip %d", result.Name, index)
	}

	return New(result.URL(index), user, pass)
}

func (c *LEDClient) doReq(endpoint string, body interface{}) ([]byte, error) {
	var rdr io.Reader
	t := "GET"

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewBuffer(data)
		t = "POST"
	}

	req, err := http.NewRequest(t, c.url+"/"+endpoint, rdr)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return nil, fmt.Errorf("request error %s: %s", resp.Status, strings.TrimSpace(string(result)))
	}

	return result, nil
}

func (c *LEDClient) Info() api.Info {
	return c.info
}

func (c *LEDClient) LEDOn(led ktd2026.Color, mode ktd2026.Mode, brightness uint8) error {
	_, err := c.doReq("led", &api.LEDRequest{
		Color:      led.String(),
		Mode:       mode.String(),
		Brightness: brightness,
	})
	return err
}

func (c *LEDClient) SetPeriod(multiplier uint8) error {
	_, err := c.doReq("period", &api.PeriodRequest{Multiplier: multiplier})
	return err
}

func (c *LEDClient) SetPWMDuty(pwm ktd2026.PWMChannel, multiplier uint8) error {
	_, err := c.doReq("pwm", &api.PWMRequest{
		Channel:    int(pwm) + 1,
		Multiplier: multiplier,
	})
	return err
}

func (c *LEDClient) TimeslotControl(mode ktd2026.TimeSlotMode) error {
	_, err := c.doReq("tslot", &api.TimeslotRequest{Mode: uint8(mode)})
	return err
}

func (c *LEDClient) WriteRegister(reg ktd2026.Register, value byte) error {
	_, err := c.doReq("register", &api.RegisterRequest{
		Register: reg.Addr(),
		Value:    value,
	})
	return err
}

// ReadRegister reads reg back from the chip, see ktd2026.Chip.ReadRegister.
func (c *LEDClient) ReadRegister(reg ktd2026.Register) (byte, error) {
	q := url.Values{}
	q.Set("register", strconv.Itoa(int(reg.Addr())))

	raw, err := c.doReq("probe?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}

	var resp api.RegisterResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, err
	}

	return resp.Value, nil
}

func (c *LEDClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
