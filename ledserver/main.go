package main

import (
	"context"
	"crypto"
	"crypto/hmac"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/BertoldVdb/go-misc/httplog"

	"github.com/BertoldVdb/ktd2026/ktd2026"
	"github.com/BertoldVdb/ktd2026/ktd2026/chipopen"
	"github.com/BertoldVdb/ktd2026/ledserver/api"
	"github.com/BertoldVdb/ktd2026/ledserver/discovery"
)

func parseChannel(name string, value int) (ktd2026.LEDParam, error) {
	if value < 1 || value > ktd2026.NumChannels {
		return ktd2026.LEDParam{}, fmt.Errorf("-%s: channel must be 1-%d", name, ktd2026.NumChannels)
	}
	return ktd2026.LEDParam{Channel: ktd2026.Channel(value - 1)}, nil
}

func main() {
	apiKey := flag.String("apikey", "", "API key to use")
	address := flag.String("addr", ":8067", "Address to listen on")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	name := flag.String("name", "ledserver", "Name announced over mDNS")
	mdns := flag.Bool("mdns", false, "Announce the server over mDNS")
	mdnsIface := flag.String("mdnsiface", "", "Interface to announce on (default all)")
	red := flag.Int("red", 3, "Channel (1-4) driving the red LED")
	green := flag.Int("green", 1, "Channel (1-4) driving the green LED")
	blue := flag.Int("blue", 2, "Channel (1-4) driving the blue LED")

	flag.Parse()

	var assignment ktd2026.Assignment
	var err error
	if assignment.Red, err = parseChannel("red", *red); err != nil {
		log.Fatalln(err)
	}
	if assignment.Green, err = parseChannel("green", *green); err != nil {
		log.Fatalln(err)
	}
	if assignment.Blue, err = parseChannel("blue", *blue); err != nil {
		log.Fatalln(err)
	}

	if *apiKey != "" {
		user, pass := authCalculate(*apiKey, "example", time.Now().AddDate(10, 0, 0))
		log.Printf("Password for username '%s': %s", user, pass)
	}

	closeChan := make(chan os.Signal, 1)
	signal.Notify(closeChan, os.Interrupt)

	logOut := log.Printf
	if !*verbose {
		logOut = nil
	}

	var mux http.ServeMux
	paths := make([]string, 0, len(flag.Args()))

	for _, m := range flag.Args() {
		log.Printf("Initializing chip '%s':", m)

		chip, err := chipopen.OpenChip(m, logOut)
		if err != nil {
			log.Printf(" -> Failed to open: %v", err)
			continue
		}
		defer func() {
			if err := chip.Halt(); err != nil {
				log.Printf("Failed to switch off %s: %v", chip, err)
			}
			chip.Close()
		}()

		if err := chip.Init(assignment); err != nil {
			log.Println(" -> Failed to initialize:", err)
			return
		}

		log.Println(" -> Chip ready:", chip)

		index := strconv.Itoa(len(paths))
		log.Printf(" -> Registering as '%s'", index)
		mux.Handle("/"+index+"/", http.StripPrefix("/"+index, api.New(chip, m)))

		paths = append(paths, m)
	}

	if len(paths) == 0 {
		log.Println("No devices available")
		return
	}

	pathsJson, err := json.MarshalIndent(&paths, "", "  ")
	if err != nil {
		log.Println(err)
		return
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(pathsJson)
	})

	logger := httplog.HTTPLog{
		LogOut:     log.Printf,
		ServerName: "LEDServer",
	}

	server := &http.Server{
		Addr:    *address,
		Handler: logger.GetHandler(authProcess(mux.ServeHTTP, *apiKey)),

		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
	}

	if *mdns {
		port, err := listenPort(*address)
		if err != nil {
			log.Println("mDNS disabled:", err)
		} else {
			announcer := discovery.NewAnnouncer(*name, port, len(paths))
			if err := announcer.Start(*mdnsIface); err != nil {
				log.Println("mDNS disabled:", err)
			} else {
				defer announcer.Stop()
			}
		}
	}

	go func() {
		log.Printf("Starting server on: http://%s", *address)
		log.Println("Server stopped:", server.ListenAndServe())

		select {
		case closeChan <- nil:
		default:
		}
	}()

	<-closeChan
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	server.Shutdown(ctx)
	cancel()
}

func listenPort(address string) (int, error) {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(portStr)
}

func authCalculate(authKey string, suffix string, expiry time.Time) (string, string) {
	user := strconv.FormatInt(expiry.Unix(), 10)

	if suffix != "" {
		user += "$" + suffix
	}

	h := hmac.New(crypto.SHA256.New, []byte(authKey))
	h.Write([]byte(user))
	return user, hex.EncodeToString(h.Sum(nil))
}

// authProcess accepts basic auth credentials created by authCalculate that
// have not expired. An empty authKey disables authentication.
func authProcess(handler http.HandlerFunc, authKey string) http.HandlerFunc {
	if len(authKey) == 0 {
		return handler
	}

	failed := func(rw http.ResponseWriter) {
		rw.Header().Set("WWW-Authenticate", "Basic")
		rw.WriteHeader(http.StatusUnauthorized)
	}

	return func(rw http.ResponseWriter, rq *http.Request) {
		user, pwd, ok := rq.BasicAuth()
		if !ok {
			failed(rw)
			return
		}

		pwdDec, err := hex.DecodeString(pwd)
		if err != nil {
			failed(rw)
			return
		}

		h := hmac.New(crypto.SHA256.New, []byte(authKey))
		h.Write([]byte(user))

		if subtle.ConstantTimeCompare(pwdDec, h.Sum(nil)) != 1 {
			failed(rw)
			return
		}

		parts := strings.SplitN(user, "$", 2)

		expiry, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || time.Now().Unix() > expiry {
			failed(rw)
			return
		}

		handler(rw, rq)
	}
}
