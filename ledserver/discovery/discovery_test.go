package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseText(t *testing.T) {
	for _, c := range []struct {
		text  []string
		name  string
		chips int
		ok    bool
	}{
		{[]string{"name=desk", "chips=2", "txtvers=1"}, "desk", 2, true},
		{[]string{"NAME=desk", "Chips=0"}, "desk", 0, true},
		{[]string{"name=desk"}, "", 0, false},
		{[]string{"chips=1"}, "", 0, false},
		{[]string{"name=desk", "chips=x"}, "", 0, false},
		{[]string{"garbage", "name=a=b", "chips=1"}, "a=b", 1, true},
	} {
		name, chips, ok := parseText(c.text)
		if name != c.name || chips != c.chips || ok != c.ok {
			t.Fatalf("%v: got %q %d %v", c.text, name, chips, ok)
		}
	}
}

func TestEntryAddr(t *testing.T) {
	e := zeroconf.NewServiceEntry("desk", serviceType, domain)
	e.Port = 8067

	if got := entryAddr(e); got != "" {
		t.Fatalf("no address: got %q", got)
	}

	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	if got := entryAddr(e); got != "[fe80::1]:8067" {
		t.Fatalf("got %q", got)
	}

	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	if got := entryAddr(e); got != "192.168.1.20:8067" {
		t.Fatalf("got %q", got)
	}
}

func TestResultURL(t *testing.T) {
	r := Result{Name: "desk", Chips: 2, Addr: "10.0.0.2:8067"}
	if got := r.URL(1); got != "http://10.0.0.2:8067/1" {
		t.Fatalf("got %q", got)
	}
}

func TestNewAnnouncer(t *testing.T) {
	a := NewAnnouncer("", 8067, 3)

	name, chips, ok := parseText(a.txtRecord)
	if !ok || name != "ledserver" || chips != 3 {
		t.Fatalf("txt %v", a.txtRecord)
	}

	// Stop without Start is a no-op.
	a.Stop()
}
