package report

// Credentials are the opaque login secrets for a company. They are never
// written to workbooks or logs.
type Credentials struct {
	Username string
	Password string
}

// String redacts the password so credentials are safe in %v output.
func (c Credentials) String() string {
	if c.Password == "" {
		return c.Username + ":<empty>"
	}
	return c.Username + ":<redacted>"
}

// Identity labels a company run. It keys the output folder and the identity
// block written on every sheet.
type Identity struct {
	Name        string
	TaxID       string
	Credentials Credentials
}
