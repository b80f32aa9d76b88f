package clients

import (
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Registry is the immutable, ordered SSO client table loaded at startup
type Registry struct {
	clients []Client
}

type registryFile struct {
	Clients []Client `yaml:"clients"`
}

// NewRegistry copies and validates the given records. Every client needs an id and at
// least one absolute redirect URI. Duplicate ids are logged; the first one wins on lookup.
func NewRegistry(records []Client) (*Registry, error) {
	seen := make(map[string]struct{}, len(records))
	clients := make([]Client, 0, len(records))
	for i, c := range records {
		if c.ID == "" {
			return nil, errors.Wrapf(errors.ErrInvalidRegistry, "client %d has no id", i)
		}
		if len(c.RedirectURIs) == 0 {
			return nil, errors.Wrapf(errors.ErrInvalidRegistry, "client %q has no redirect uris", c.ID)
		}
		for _, uri := range c.RedirectURIs {
			u, err := url.Parse(uri)
			if err != nil || !u.IsAbs() {
				return nil, errors.Wrapf(errors.ErrInvalidRegistry, "client %q redirect uri %q is not absolute", c.ID, uri)
			}
		}
		if _, dup := seen[c.ID]; dup {
			log.Warn().Str("client_id", c.ID).Msg("duplicate sso client id, first entry wins")
		}
		seen[c.ID] = struct{}{}

		c.RedirectURIs = append([]string(nil), c.RedirectURIs...)
		clients = append(clients, c)
	}
	return &Registry{clients: clients}, nil
}

// Load reads a YAML registry document:
//
//	clients:
//	  - id: abc
//	    name: Dashboard
//	    horizontal_logo: https://example.com/logo.png
//	    redirect_uris: [https://app.example.com/sso-callback]
func Load(r io.Reader) (*Registry, error) {
	var doc registryFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return NewRegistry(nil)
		}
		return nil, errors.Wrapf(errors.ErrInvalidRegistry, "decode: %v", err)
	}
	return NewRegistry(doc.Clients)
}

// LoadFile loads the registry from path, or the built-in registry when path is empty
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(Builtin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sso registry: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Resolve finds the client with the exact id. A miss means no redirect is possible.
func (r *Registry) Resolve(clientID string) (*Client, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.clients {
		if r.clients[i].ID == clientID {
			c := r.clients[i]
			c.RedirectURIs = append([]string(nil), c.RedirectURIs...)
			return &c, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.clients)
}
