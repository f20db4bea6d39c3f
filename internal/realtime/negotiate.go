// ABOUTME: Connection negotiation for clients subscribing to fanout events
// ABOUTME: Issues the client endpoint URL plus a subscribe token per call

package realtime

import "strings"

// Connection is the credential a client needs to subscribe to the hub.
type Connection struct {
	URL         string `json:"url"`
	AccessToken string `json:"accessToken"`
}

// Negotiator issues connection credentials. It is stateless: one token per
// call, no session affinity beyond what the broker itself manages.
type Negotiator struct {
	endpoint string
	hub      string
	issuer   *TokenIssuer
}

// NewNegotiator creates a negotiator for the given broker endpoint and hub.
func NewNegotiator(endpoint, hub string, issuer *TokenIssuer) *Negotiator {
	return &Negotiator{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		hub:      hub,
		issuer:   issuer,
	}
}

// Negotiate returns the subscribe credential for a client. userID, when
// non-empty, binds the connection to that author identity so user-targeted
// sends reach it.
func (n *Negotiator) Negotiate(userID string) (*Connection, error) {
	clientURL := n.endpoint + "/client/?hub=" + n.hub

	token, err := n.issuer.Issue(clientURL, userID)
	if err != nil {
		return nil, err
	}

	return &Connection{
		URL:         clientURL,
		AccessToken: token,
	}, nil
}
