package models

// StoreCredentials is the portal login of one store.
type StoreCredentials struct {
	Name     string
	Username string
	Password string
}
