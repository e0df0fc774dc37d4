// Package discovery announces and finds ledserver instances with mDNS.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	serviceType = "_ktd2026._tcp"
	domain      = "local."
)

type Announcer struct {
	name      string
	port      int
	txtRecord []string

	server *zeroconf.Server
}

// NewAnnouncer prepares an announcement for a server called name listening on
// port and exporting chips chips.
func NewAnnouncer(name string, port int, chips int) *Announcer {
	if name == "" {
		name = "ledserver"
	}

	return &Announcer{
		name:      name,
		port:      port,
		txtRecord: []string{"name=" + name, "chips=" + strconv.Itoa(chips), "txtvers=1"},
	}
}

// Start announces the service on ifaceName, or on all interfaces if it is
// empty.
func (a *Announcer) Start(ifaceName string) error {
	a.Stop()

	var ifaces []net.Interface
	if ifaceName != "" {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			return err
		}
		ifaces = []net.Interface{*iface}
	}

	server, err := zeroconf.Register(a.name, serviceType, domain, a.port, a.txtRecord, ifaces)
	if err != nil {
		return err
	}
	server.TTL(60)

	a.server = server
	return nil
}

func (a *Announcer) Stop() {
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}

type Result struct {
	Name  string
	Chips int
	Addr  string
}

// URL returns the base URL of chip index on the server.
func (r Result) URL(index int) string {
	return fmt.Sprintf("http://%s/%d", r.Addr, index)
}

func parseText(text []string) (name string, chips int, ok bool) {
	var chipsStr string
	for _, m := range text {
		kv := strings.SplitN(m, "=", 2)
		if len(kv) != 2 {
			continue
		}

		switch strings.ToLower(kv[0]) {
		case "name":
			name = kv[1]
		case "chips":
			chipsStr = kv[1]
		}
	}

	if name == "" || chipsStr == "" {
		return "", 0, false
	}

	chips, err := strconv.Atoi(chipsStr)
	if err != nil || chips < 0 {
		return "", 0, false
	}

	return name, chips, true
}

func entryAddr(entry *zeroconf.ServiceEntry) string {
	var addr string
	if len(entry.AddrIPv4) > 0 {
		addr = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		addr = "[" + entry.AddrIPv6[0].String() + "]"
	} else {
		return ""
	}

	return addr + ":" + strconv.Itoa(entry.Port)
}

// Discover browses for servers until one matching filterName (or any, if
// filterName is empty) is found or timeout expires.
func Discover(ctx context.Context, filterName string, timeout time.Duration) (Result, error) {
	var result Result

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return result, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, serviceType, domain, entries); err != nil {
		return result, err
	}

	for m := range entries {
		name, chips, ok := parseText(m.Text)
		if !ok {
			continue
		}

		if filterName != "" && name != filterName {
			continue
		}

		addr := entryAddr(m)
		if addr == "" {
			continue
		}

		return Result{
			Name:  name,
			Chips: chips,
			Addr:  addr,
		}, nil
	}

	return result, errors.New("no results")
}
