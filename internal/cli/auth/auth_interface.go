package auth

// TokenStore stores admin session cookies per backend URL
type TokenStore interface {
	SaveToken(backendURL, token string) error
	LoadToken(backendURL string) (string, error)
	DeleteToken(backendURL string) error
}

// keyringStore is the TokenStore backed by the OS keyring
type keyringStore struct{}

func (keyringStore) SaveToken(backendURL, token string) error    { return SaveToken(backendURL, token) }
func (keyringStore) LoadToken(backendURL string) (string, error) { return LoadToken(backendURL) }
func (keyringStore) DeleteToken(backendURL string) error         { return DeleteToken(backendURL) }

// Default is the production token store
var Default TokenStore = keyringStore{}
