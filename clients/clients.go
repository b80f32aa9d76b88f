package clients

// Client is a downstream application that accepts the SSO handoff
type Client struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	LogoURL      string   `json:"horizontalLogo" yaml:"horizontal_logo"`
	RedirectURIs []string `json:"redirectURIs" yaml:"redirect_uris"`
}

// DefaultRedirectURI returns the first registered redirect target
func (c *Client) DefaultRedirectURI() (string, bool) {
	if c == nil || len(c.RedirectURIs) == 0 {
		return "", false
	}
	return c.RedirectURIs[0], true
}

// Builtin is the registry compiled into the portal
var Builtin = []Client{
	{
		ID:           "kH9X3vKwLm7YEQzR",
		Name:         "Dashboard Admin",
		LogoURL:      "https://jumpapay.com/assets/images/logo.png",
		RedirectURIs: []string{"https://dashboard.jumpapay.com/sso-callback"},
	},
	{
		ID:           "okl9vk0o6zkr41fc",
		Name:         "Gamaloka Dashboard",
		LogoURL:      "https://gamaloka.com/wp-content/uploads/2023/12/gamaloka-1800x4001-1-200x44.png",
		RedirectURIs: []string{"https://dashboard.gamaloka.com/sso-callback"},
	},
}
