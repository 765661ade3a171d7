package deplink

// Certificates links to a certificate authority issuing this
// service's TLS material. Ready once both the signed certificate and
// the CA certificate have arrived.
type Certificates struct {
	name      string
	mandatory bool
	ch        Channel
}

func NewCertificates(cfg Config, ch Channel) *Certificates {
	return &Certificates{name: cfg.Name, mandatory: cfg.Mandatory, ch: ch}
}

func (c *Certificates) Name() string    { return c.name }
func (c *Certificates) Mandatory() bool { return c.mandatory }

func (c *Certificates) Ready() bool {
	cert, hasCert := read(c.ch, "certificate")
	ca, hasCA := read(c.ch, "ca")
	return hasCert && hasCA && cert != "" && ca != ""
}

func (c *Certificates) Context() map[string]string {
	if !c.Ready() {
		return map[string]string{}
	}
	cert, _ := read(c.ch, "certificate")
	ca, _ := read(c.ch, "ca")
	if chain, ok := read(c.ch, "chain"); ok && chain != "" {
		ca = ca + "\n" + chain
	}
	ctx := map[string]string{
		"cert":    cert,
		"ca_cert": ca,
	}
	if key, ok := read(c.ch, "key"); ok {
		ctx["key"] = key
	}
	return ctx
}
