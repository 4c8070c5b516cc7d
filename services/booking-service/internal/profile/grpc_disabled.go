//go:build !protogen

package profile

// NewGRPCProvider is a no-op without generated proto bindings. The
// caller falls back to the database provider when it returns nil.
func NewGRPCProvider(_ string) (Provider, error) {
	return nil, nil
}
