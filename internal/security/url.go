// Package security guards outbound requests for URLs chosen by the model.
//
// The retrieve_url tool fetches whatever address the model asks for, which
// makes it an SSRF vector: a crafted conversation could point it at the
// cloud metadata endpoint or services on the bot's own network. The
// validator blocks private ranges, loopback, link-local and known metadata
// hostnames, both statically and again at dial time after DNS resolution.
package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxRedirects = 10

// URLValidator decides which URLs the bot may fetch.
type URLValidator struct {
	allowedSchemes map[string]struct{}
	blockedHosts   map[string]struct{}
	allowLoopback  bool
}

// Option configures a URLValidator.
type Option func(*URLValidator)

// AllowLoopback permits loopback targets. Test use only; production fetches
// must never reach the bot's own host.
func AllowLoopback() Option {
	return func(v *URLValidator) { v.allowLoopback = true }
}

// NewURLValidator creates a validator with the default block list.
func NewURLValidator(opts ...Option) *URLValidator {
	v := &URLValidator{
		allowedSchemes: map[string]struct{}{
			"http":  {},
			"https": {},
		},
		blockedHosts: map[string]struct{}{
			"localhost":                {},
			"metadata.google.internal": {},
			"metadata.gce.internal":    {},
			"metadata.internal":        {},
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate statically checks a URL before any request is made. Hostnames
// that need DNS resolution are checked again in the transport's dialer.
func (v *URLValidator) Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if _, ok := v.allowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("unsupported scheme: %s (allowed: http, https)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty hostname")
	}
	return v.checkHost(host)
}

func (v *URLValidator) checkHost(host string) error {
	lower := strings.ToLower(host)
	if _, blocked := v.blockedHosts[lower]; blocked {
		if !(v.allowLoopback && lower == "localhost") {
			return fmt.Errorf("blocked host: %s", host)
		}
	}
	if ip := net.ParseIP(host); ip != nil {
		return v.checkIP(ip)
	}
	// Hostname resolution is checked in the dialer.
	return nil
}

func (v *URLValidator) checkIP(ip net.IP) error {
	// Normalize IPv6-mapped IPv4 (::ffff:127.0.0.1 -> 127.0.0.1).
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	if ip.IsLoopback() {
		if v.allowLoopback {
			return nil
		}
		return fmt.Errorf("loopback address not allowed: %s", ip)
	}
	if ip.IsPrivate() {
		return fmt.Errorf("private IP not allowed: %s", ip)
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("link-local address not allowed: %s", ip)
	}
	if ip.IsUnspecified() {
		return fmt.Errorf("unspecified address not allowed: %s", ip)
	}
	return nil
}

// Transport returns an http.Transport whose dialer re-validates every
// resolved IP, closing the DNS rebinding gap that static validation
// leaves open.
func (v *URLValidator) Transport() *http.Transport {
	return &http.Transport{
		DialContext:         v.dialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

func (v *URLValidator) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		port = ""
	}

	if ip := net.ParseIP(host); ip != nil {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("fetch blocked: %w", err)
		}
		return (&net.Dialer{}).DialContext(ctx, network, addr)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed: %w", err)
	}
	for _, ip := range ips {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("fetch blocked (resolved %s -> %s): %w", host, ip, err)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses resolved for %s", host)
	}

	// Dial the IP that was just checked to avoid a second resolution.
	target := ips[0].String()
	if port != "" {
		target = net.JoinHostPort(target, port)
	}
	return (&net.Dialer{}).DialContext(ctx, network, target)
}

// CheckRedirect bounds redirect chains and re-validates each hop. Assign it
// to http.Client.CheckRedirect.
func (v *URLValidator) CheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return v.Validate(req.URL.String())
}
