package deplink

// Database links to a relational database provider. The provider
// publishes endpoints plus credentials; readiness requires all three.
type Database struct {
	name      string
	mandatory bool
	database  string
	scheme    string
	ch        Channel
}

// NewDatabase builds a database link. Options: "database" names the
// schema requested by this service (defaults to the normalised link
// name), "scheme" the connection URL scheme (defaults to "mysql").
func NewDatabase(cfg Config, ch Channel) *Database {
	db := cfg.Options["database"]
	if db == "" {
		db = ContextKey(cfg.Name)
	}
	scheme := cfg.Options["scheme"]
	if scheme == "" {
		scheme = "mysql"
	}
	return &Database{
		name:      cfg.Name,
		mandatory: cfg.Mandatory,
		database:  db,
		scheme:    scheme,
		ch:        ch,
	}
}

func (d *Database) Name() string    { return d.name }
func (d *Database) Mandatory() bool { return d.mandatory }

func (d *Database) Ready() bool {
	_, hasHost := read(d.ch, "endpoints")
	_, hasUser := read(d.ch, "username")
	_, hasPass := read(d.ch, "password")
	return hasHost && hasUser && hasPass
}

// Context assembles the connection string. Three shapes are possible:
// plain, server-verified TLS (ssl_ca only), and mutual TLS (ssl_ca
// plus ssl_cert and ssl_key when both client halves are present).
func (d *Database) Context() map[string]string {
	if !d.Ready() {
		return map[string]string{}
	}
	host, _ := read(d.ch, "endpoints")
	user, _ := read(d.ch, "username")
	pass, _ := read(d.ch, "password")

	connection := d.scheme + "://" + user + ":" + pass + "@" + host + "/" + d.database
	if ca, ok := read(d.ch, "tls-ca"); ok && ca != "" {
		connection += "?ssl_ca=" + ca
		cert, hasCert := read(d.ch, "tls-cert")
		key, hasKey := read(d.ch, "tls-key")
		if hasCert && hasKey && cert != "" && key != "" {
			connection += "&ssl_cert=" + cert + "&ssl_key=" + key
		}
	}

	return map[string]string{
		"database":          d.database,
		"database_host":     host,
		"database_user":     user,
		"database_password": pass,
		"database_type":     d.scheme,
		"connection":        connection,
	}
}
