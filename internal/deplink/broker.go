package deplink

import (
	"sort"
	"strings"
)

const defaultBrokerPort = "5672"

// Broker links to a message broker. The broker publishes its hostnames
// and a secret credential; readiness requires both.
type Broker struct {
	name      string
	mandatory bool
	username  string
	vhost     string
	ch        Channel
}

// NewBroker builds a message-broker link. Options: "username" is the
// account this service connects as (defaults to the normalised link
// name), "vhost" the virtual host (defaults to "/").
func NewBroker(cfg Config, ch Channel) *Broker {
	username := cfg.Options["username"]
	if username == "" {
		username = ContextKey(cfg.Name)
	}
	vhost := cfg.Options["vhost"]
	if vhost == "" {
		vhost = "/"
	}
	return &Broker{
		name:      cfg.Name,
		mandatory: cfg.Mandatory,
		username:  username,
		vhost:     vhost,
		ch:        ch,
	}
}

func (b *Broker) Name() string    { return b.name }
func (b *Broker) Mandatory() bool { return b.mandatory }

func (b *Broker) Ready() bool {
	_, hasPass := read(b.ch, "password")
	hosts, hasHosts := read(b.ch, "hostnames")
	return hasPass && hasHosts && hosts != ""
}

func (b *Broker) hostnames() []string {
	raw, ok := read(b.ch, "hostnames")
	if !ok || raw == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var hosts []string
	for _, h := range strings.Split(raw, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func (b *Broker) Context() map[string]string {
	if !b.Ready() {
		return map[string]string{}
	}
	pass, _ := read(b.ch, "password")
	hosts := b.hostnames()

	port := defaultBrokerPort
	if sslPort, ok := read(b.ch, "ssl-port"); ok && sslPort != "" {
		port = sslPort
	}

	endpoints := make([]string, 0, len(hosts))
	for _, h := range hosts {
		endpoints = append(endpoints, b.username+":"+pass+"@"+h+":"+port)
	}
	vhost := strings.TrimPrefix(b.vhost, "/")
	transportURL := "rabbit://" + strings.Join(endpoints, ",") + "/" + vhost

	return map[string]string{
		"username":      b.username,
		"password":      pass,
		"hosts":         strings.Join(hosts, ","),
		"port":          port,
		"vhost":         b.vhost,
		"transport_url": transportURL,
	}
}
