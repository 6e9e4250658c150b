// Package model defines domain entities used by services and repositories.
package model

import "time"

// Channel is the transport class a session token is bound to. A token issued
// for one channel is never valid on the other.
type Channel string

const (
	// ChannelWeb is the browser channel (cookie transport).
	ChannelWeb Channel = "web"
	// ChannelAPI is the programmatic channel (x-token header transport).
	ChannelAPI Channel = "api"
)

// IsWeb reports whether the channel is the browser channel. The tokens table
// stores the channel as a boolean flag.
func (c Channel) IsWeb() bool { return c == ChannelWeb }

// Account is a registered subscriber. Key is the client-held 64-hex capability
// and is echoed back on the account page, so it is stored verbatim. TimeLeft
// is an absolute epoch: the subscription balance, independent of sessions.
type Account struct {
	ID        int64
	Key       string
	TimeLeft  int64
	FlocksMax int
	CreatedAt time.Time
}

// Token is a server-side session credential: 16 random bytes hex-encoded,
// bound to one account and one channel, with a sliding absolute expiry.
type Token struct {
	Value   string
	Account int64
	Channel Channel
	Expires int64
}

// AuthContext is the immutable result of a successful token validation,
// passed by value into every authenticated handler.
type AuthContext struct {
	AccountID  int64
	AccountKey string
	FlocksMax  int
	TimeLeft   int64 // seconds of subscription balance remaining, 0 when lapsed
	Lapsed     bool  // balance exhausted: only self-service operations allowed
	Channel    Channel
}

// Flock is a named group of devices: the unit of ownership and quota. The id
// is 8 random bytes with the low byte forced to zero, hex-encoded.
type Flock struct {
	ID          string
	Owner       int64
	AmbryUpdate int64
	CreatedAt   time.Time
}

// Device is an enrolled client bound to one flock. Slot is the KEK id
// (0 means unassigned; assigned 1..255 at approval). Key is the wrapped
// symmetric key material handed out at enrollment, PubKey the hex-encoded
// cosigning key supplied by the device.
type Device struct {
	ID        string
	Flock     string
	Account   int64
	PubKey    string
	Key       string
	Slot      int
	Approved  bool
	CreatedAt time.Time
}

// TrustLink is one direction of an xflock: a trust assertion from the owner
// of Src toward Dst. The link is established only when the reverse direction
// exists as well.
type TrustLink struct {
	Src   string
	Dst   string
	Owner int64
}

// LinkState reports the outcome of a trust-link creation.
type LinkState int

const (
	// LinkPending means the forward direction exists but the counterpart has
	// not reciprocated yet.
	LinkPending LinkState = iota
	// LinkEstablished means both directions exist.
	LinkEstablished
)

// Cathedral is a rendezvous relay advertised to clients; not operated by this
// service.
type Cathedral struct {
	IP    string
	Port  int
	Descr string
}

// Enrollment is what a device receives from enroll, real or decoy: the field
// set is identical in both cases so response shape reveals nothing.
type Enrollment struct {
	CathedralID     string `json:"cathedral_id"`
	CathedralSecret string `json:"cathedral_secret"`
	Flock           string `json:"flock"`
}
