package models

// Account is a registered user. Password is stored and returned as given.
type Account struct {
	ID       int64  `json:"account_id"`
	Username string `json:"username"`
	Password string `json:"password"`
}
