// Command webpeel-sidecar is the reference TLS-spoofing sidecar
// process spec.md §4.4 describes: a separate binary that owns the
// utls dependency so a Chrome TLS ClientHello fingerprint can be
// reproduced without linking utls into the main process. It speaks
// the documented handshake-then-bearer-HTTP protocol and nothing else.
//
// Usage: webpeel-sidecar --port 0 --token <hex>
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	tls2 "github.com/refraction-networking/utls"
)

type handshake struct {
	Port  int    `json:"port"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

type fetchRequest struct {
	URL       string            `json:"url"`
	TimeoutMS int               `json:"timeoutMs"`
	Proxy     string            `json:"proxy,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

type fetchResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	BodyBase64 string            `json:"bodyBase64"`
	FinalURL   string            `json:"finalUrl"`
	Error      string            `json:"error,omitempty"`
}

func main() {
	port := flag.Int("port", 0, "port to listen on, 0 picks a free loopback port")
	token := flag.String("token", "", "bearer token required on every request")
	flag.Parse()

	if *token == "" {
		emitHandshake(handshake{Error: "missing --token"})
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", *port))
	if err != nil {
		emitHandshake(handshake{Error: err.Error()})
		os.Exit(1)
	}
	actualPort := ln.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	srv := &http.Server{Handler: authMiddleware(*token, mux)}
	mux.HandleFunc("/fetch", handleFetch)
	mux.HandleFunc("/shutdown", handleShutdown(srv, ln))

	emitHandshake(handshake{Port: actualPort, Ready: true})

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		slog.Error("webpeel-sidecar: server error", "error", err)
		os.Exit(1)
	}
}

func emitHandshake(hs handshake) {
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(hs)
}

func authMiddleware(token string, next http.Handler) http.Handler {
	want := "Bearer " + token
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != want {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, fetchResponse{Error: "malformed request: " + err.Error()})
		return
	}
	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	resp, err := fetchWithChromeFingerprint(ctx, req)
	if err != nil {
		writeJSON(w, fetchResponse{Error: err.Error()})
		return
	}
	writeJSON(w, resp)
}

func handleShutdown(srv *http.Server, ln net.Listener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// fetchWithChromeFingerprint performs one GET using a utls Chrome
// ClientHello, grounded on the teacher's scraper/httpfetch.go
// dialTLSChrome almost verbatim.
func fetchWithChromeFingerprint(ctx context.Context, req fetchRequest) (fetchResponse, error) {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, req.Proxy)
		},
	}
	if req.Proxy != "" {
		if proxyURL, err := url.Parse(req.Proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fetchResponse{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36")
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fetchResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return fetchResponse{}, fmt.Errorf("reading body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return fetchResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		BodyBase64: base64.StdEncoding.EncodeToString(body),
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

func dialTLSChrome(ctx context.Context, network, addr, proxy string) (net.Conn, error) {
	dialer := &net.Dialer{}
	var rawConn net.Conn
	var err error

	if proxy != "" {
		if proxyURL, perr := url.Parse(proxy); perr == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			rawConn, err = dialer.DialContext(ctx, "tcp", proxyURL.Host)
			if err != nil {
				return nil, fmt.Errorf("socks5 dial: %w", err)
			}
		}
	}
	if rawConn == nil {
		rawConn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{ServerName: host}, tls2.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
